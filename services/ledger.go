// services/ledger.go
package services

import (
	"errors"
	"fmt"
	"time"

	"creditbook/models"
	"creditbook/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService owns the authoritative ledger: every balance mutation goes
// through ApplyTransaction, which keeps a customer's TotalDue equal to the
// signed sum of its transactions.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// DashboardSummary is a live aggregate over the owner's partition.
type DashboardSummary struct {
	TotalOutstanding float64 `json:"totalOutstanding"`
	TodayCollection  float64 `json:"todayCollection"`
	ActiveCustomers  int64   `json:"activeCustomers"`
}

func (s *LedgerService) CreateCustomer(userID uuid.UUID, name, phone string) (*models.Customer, error) {
	if name == "" {
		return nil, &ValidationError{Msg: "customer name is required"}
	}
	if phone != "" && !utils.ValidatePhone(phone) {
		return nil, &ValidationError{Msg: "invalid phone number format"}
	}

	customer := models.Customer{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Phone:  phone,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer edits name/phone and toggles the recycle-bin flag. Nil
// fields are left untouched. The balance and history are never affected
// here, so a restore needs no recomputation.
func (s *LedgerService) UpdateCustomer(userID, customerID uuid.UUID, name, phone *string, isDeleted *bool) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.Where("user_id = ? AND id = ?", userID, customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Msg: "customer not found"}
		}
		return nil, err
	}

	if name != nil {
		if *name == "" {
			return nil, &ValidationError{Msg: "customer name is required"}
		}
		customer.Name = *name
	}
	if phone != nil {
		if *phone != "" && !utils.ValidatePhone(*phone) {
			return nil, &ValidationError{Msg: "invalid phone number format"}
		}
		customer.Phone = *phone
	}
	if isDeleted != nil {
		customer.IsDeleted = *isDeleted
	}

	if err := s.db.Save(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// SetDeleted moves a customer in or out of the recycle bin. TotalDue and the
// transaction history are untouched either way.
func (s *LedgerService) SetDeleted(userID, customerID uuid.UUID, deleted bool) error {
	result := s.db.Model(&models.Customer{}).
		Where("user_id = ? AND id = ?", userID, customerID).
		Update("is_deleted", deleted)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Msg: "customer not found"}
	}
	return nil
}

// PurgeCustomer permanently removes a recycle-bin customer and its history.
// Active customers must be soft-deleted first.
func (s *LedgerService) PurgeCustomer(userID, customerID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.Where("user_id = ? AND id = ?", userID, customerID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Msg: "customer not found"}
			}
			return err
		}
		if !customer.IsDeleted {
			return &ValidationError{Msg: "customer must be in the recycle bin before purge"}
		}
		if err := tx.Where("customer_id = ?", customer.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&customer).Error
	})
}

// ListCustomers returns exactly the customers whose IsDeleted matches.
// Active customers come back ordered by name.
func (s *LedgerService) ListCustomers(userID uuid.UUID, deleted bool) ([]models.Customer, error) {
	var customers []models.Customer
	query := s.db.Where("user_id = ? AND is_deleted = ?", userID, deleted)
	if !deleted {
		query = query.Order("name ASC")
	}
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *LedgerService) GetCustomer(userID, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.Where("user_id = ? AND id = ?", userID, customerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Msg: "customer not found"}
		}
		return nil, err
	}
	return &customer, nil
}

// ApplyTransaction records a ledger entry and adjusts the owning customer's
// balance as one atomic unit: both effects commit or neither does. The
// balance update is a single guarded UPDATE, so concurrent applies against
// the same customer serialize on its row while other customers proceed
// independently. The returned balance is read inside the same transaction,
// so it reflects exactly this apply and nothing later.
func (s *LedgerService) ApplyTransaction(userID, customerID uuid.UUID, amount float64, txType, description string) (*models.Transaction, float64, error) {
	if amount <= 0 {
		return nil, 0, &ValidationError{Msg: "amount must be positive"}
	}
	if txType != models.TransactionCredit && txType != models.TransactionPayment {
		return nil, 0, &ValidationError{Msg: fmt.Sprintf("unknown transaction type %q", txType)}
	}

	entry := models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		CustomerID:  customerID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	}

	var totalDue float64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Customer{}).
			Where("user_id = ? AND id = ?", userID, customerID).
			Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return &NotFoundError{Msg: "customer not found"}
		}

		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Customer{}).
			Where("user_id = ? AND id = ?", userID, customerID).
			Update("total_due", gorm.Expr("total_due + ?", entry.SignedAmount()))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Msg: "customer not found"}
		}

		return tx.Model(&models.Customer{}).
			Where("user_id = ? AND id = ?", userID, customerID).
			Select("total_due").
			Scan(&totalDue).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return &entry, totalDue, nil
}

// ListTransactions returns a customer's full history in creation order.
func (s *LedgerService) ListTransactions(userID, customerID uuid.UUID) ([]models.Transaction, error) {
	if _, err := s.GetCustomer(userID, customerID); err != nil {
		return nil, err
	}
	var entries []models.Transaction
	if err := s.db.Where("user_id = ? AND customer_id = ?", userID, customerID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Summary computes the dashboard aggregate live; it is never cached.
func (s *LedgerService) Summary(userID uuid.UUID) (*DashboardSummary, error) {
	var summary DashboardSummary

	if err := s.db.Model(&models.Customer{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Select("COALESCE(SUM(total_due), 0)").
		Scan(&summary.TotalOutstanding).Error; err != nil {
		return nil, err
	}

	startOfDay := utils.BeginningOfDay(time.Now())
	if err := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, models.TransactionPayment, startOfDay).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&summary.TodayCollection).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Customer{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Count(&summary.ActiveCustomers).Error; err != nil {
		return nil, err
	}

	return &summary, nil
}
