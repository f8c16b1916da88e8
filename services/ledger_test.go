package services

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"creditbook/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Customer{}, &models.Transaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestOwner(t *testing.T, db *gorm.DB, phone string) *models.User {
	t.Helper()
	user := models.User{
		Phone:        phone,
		Password:     "secret-password",
		FullName:     "Test Owner",
		BusinessName: "Test Store",
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}
	return &user
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApplyTransactionScenario(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")

	customer, err := ledger.CreateCustomer(owner.ID, "Ravi", "")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if !almostEqual(customer.TotalDue, 0) {
		t.Fatalf("new customer TotalDue = %v, want 0", customer.TotalDue)
	}

	_, balance, err := ledger.ApplyTransaction(owner.ID, customer.ID, 500, models.TransactionCredit, "goods")
	if err != nil {
		t.Fatalf("apply credit: %v", err)
	}
	if !almostEqual(balance, 500) {
		t.Fatalf("returned balance after CREDIT 500 = %v, want 500", balance)
	}
	got, err := ledger.GetCustomer(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !almostEqual(got.TotalDue, 500) {
		t.Fatalf("after CREDIT 500 TotalDue = %v, want 500", got.TotalDue)
	}

	_, balance, err = ledger.ApplyTransaction(owner.ID, customer.ID, 200, models.TransactionPayment, "part payment")
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if !almostEqual(balance, 300) {
		t.Fatalf("returned balance after PAYMENT 200 = %v, want 300", balance)
	}
	got, err = ledger.GetCustomer(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !almostEqual(got.TotalDue, 300) {
		t.Fatalf("after PAYMENT 200 TotalDue = %v, want 300", got.TotalDue)
	}

	entries, err := ledger.ListTransactions(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Amount != 500 || entries[0].Type != models.TransactionCredit {
		t.Errorf("entries[0] = %v %s, want 500 CREDIT", entries[0].Amount, entries[0].Type)
	}
	if entries[1].Amount != 200 || entries[1].Type != models.TransactionPayment {
		t.Errorf("entries[1] = %v %s, want 200 PAYMENT", entries[1].Amount, entries[1].Type)
	}
}

func TestApplyTransactionValidation(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")
	customer, _ := ledger.CreateCustomer(owner.ID, "Ravi", "")

	cases := []struct {
		name   string
		amount float64
		txType string
	}{
		{"zero amount", 0, models.TransactionCredit},
		{"negative amount", -10, models.TransactionPayment},
		{"unknown type", 100, "REFUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ledger.ApplyTransaction(owner.ID, customer.ID, tc.amount, tc.txType, "")
			if !IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}

	if _, _, err := ledger.ApplyTransaction(owner.ID, uuid.New(), 100, models.TransactionCredit, ""); !IsNotFound(err) {
		t.Fatalf("unknown customer err = %v, want NotFoundError", err)
	}
}

// The balance must equal the signed sum of the history after any sequence
// of successful applies.
func TestBalanceInvariantRandomSequence(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")
	customer, _ := ledger.CreateCustomer(owner.ID, "Meena", "")

	rng := rand.New(rand.NewSource(42))
	var expected float64
	for i := 0; i < 60; i++ {
		amount := float64(rng.Intn(900)+1) / 2
		txType := models.TransactionCredit
		if rng.Intn(2) == 0 {
			txType = models.TransactionPayment
		}
		if _, _, err := ledger.ApplyTransaction(owner.ID, customer.ID, amount, txType, ""); err != nil {
			t.Fatalf("apply #%d: %v", i, err)
		}
		if txType == models.TransactionCredit {
			expected += amount
		} else {
			expected -= amount
		}
	}

	got, err := ledger.GetCustomer(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !almostEqual(got.TotalDue, expected) {
		t.Fatalf("TotalDue = %v, want %v", got.TotalDue, expected)
	}

	entries, _ := ledger.ListTransactions(owner.ID, customer.ID)
	var sum float64
	for i := range entries {
		sum += entries[i].SignedAmount()
	}
	if !almostEqual(sum, got.TotalDue) {
		t.Fatalf("signed sum %v != TotalDue %v", sum, got.TotalDue)
	}
}

// Concurrent applies against one customer must serialize on its row and
// leave TotalDue equal to the signed sum of every committed entry.
func TestApplyTransactionConcurrentSameCustomer(t *testing.T) {
	db := openTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	// sqlite permits one writer at a time; a single pooled connection keeps
	// concurrent applies queued instead of failing with a busy error.
	sqlDB.SetMaxOpenConns(1)

	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")
	customer, _ := ledger.CreateCustomer(owner.ID, "Meena", "")

	const workers = 8
	const perWorker = 10

	amountFor := func(w, i int) (float64, string) {
		amount := float64(w*perWorker + i + 1)
		if (w+i)%2 == 1 {
			return amount, models.TransactionPayment
		}
		return amount, models.TransactionCredit
	}

	var expected float64
	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			amount, txType := amountFor(w, i)
			if txType == models.TransactionCredit {
				expected += amount
			} else {
				expected -= amount
			}
		}
	}

	var wg sync.WaitGroup
	applyErrs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				amount, txType := amountFor(w, i)
				if _, _, err := ledger.ApplyTransaction(owner.ID, customer.ID, amount, txType, ""); err != nil {
					applyErrs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(applyErrs)
	for err := range applyErrs {
		t.Fatalf("concurrent apply: %v", err)
	}

	got, err := ledger.GetCustomer(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !almostEqual(got.TotalDue, expected) {
		t.Fatalf("TotalDue = %v, want %v", got.TotalDue, expected)
	}

	entries, err := ledger.ListTransactions(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(entries) != workers*perWorker {
		t.Fatalf("len(entries) = %d, want %d", len(entries), workers*perWorker)
	}
}

// A failure injected between the entry insert and the balance update must
// leave neither effect behind.
func TestApplyTransactionAtomicity(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")
	customer, _ := ledger.CreateCustomer(owner.ID, "Ravi", "")

	if _, _, err := ledger.ApplyTransaction(owner.ID, customer.ID, 100, models.TransactionCredit, "seed"); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	err := db.Callback().Create().After("gorm:create").Register("fail_injection", func(tx *gorm.DB) {
		if entry, ok := tx.Statement.Dest.(*models.Transaction); ok && entry.Description == "boom" {
			tx.AddError(errors.New("injected crash"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, _, err := ledger.ApplyTransaction(owner.ID, customer.ID, 999, models.TransactionCredit, "boom"); err == nil {
		t.Fatal("apply with injected crash succeeded, want error")
	}

	got, err := ledger.GetCustomer(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !almostEqual(got.TotalDue, 100) {
		t.Fatalf("TotalDue after failed apply = %v, want 100", got.TotalDue)
	}

	var count int64
	db.Model(&models.Transaction{}).Where("customer_id = ?", customer.ID).Count(&count)
	if count != 1 {
		t.Fatalf("transaction count after failed apply = %d, want 1", count)
	}
}

func TestSoftDeleteRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")
	customer, _ := ledger.CreateCustomer(owner.ID, "Sita", "")

	ledger.ApplyTransaction(owner.ID, customer.ID, 750, models.TransactionCredit, "")
	ledger.ApplyTransaction(owner.ID, customer.ID, 250, models.TransactionPayment, "")

	if err := ledger.SetDeleted(owner.ID, customer.ID, true); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	active, _ := ledger.ListCustomers(owner.ID, false)
	if len(active) != 0 {
		t.Fatalf("active list after delete has %d customers, want 0", len(active))
	}
	binned, _ := ledger.ListCustomers(owner.ID, true)
	if len(binned) != 1 {
		t.Fatalf("recycle bin has %d customers, want 1", len(binned))
	}
	if !almostEqual(binned[0].TotalDue, 500) {
		t.Fatalf("deleted customer TotalDue = %v, want 500", binned[0].TotalDue)
	}

	if err := ledger.SetDeleted(owner.ID, customer.ID, false); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, err := ledger.GetCustomer(owner.ID, customer.ID)
	if err != nil {
		t.Fatalf("get restored: %v", err)
	}
	if restored.IsDeleted {
		t.Fatal("customer still marked deleted after restore")
	}
	if !almostEqual(restored.TotalDue, 500) {
		t.Fatalf("restored TotalDue = %v, want 500", restored.TotalDue)
	}
	entries, _ := ledger.ListTransactions(owner.ID, customer.ID)
	if len(entries) != 2 {
		t.Fatalf("restored history has %d entries, want 2", len(entries))
	}
}

func TestPurgeRequiresRecycleBin(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")
	customer, _ := ledger.CreateCustomer(owner.ID, "Arjun", "")
	ledger.ApplyTransaction(owner.ID, customer.ID, 100, models.TransactionCredit, "")

	if err := ledger.PurgeCustomer(owner.ID, customer.ID); !IsValidation(err) {
		t.Fatalf("purge of active customer err = %v, want ValidationError", err)
	}

	ledger.SetDeleted(owner.ID, customer.ID, true)
	if err := ledger.PurgeCustomer(owner.ID, customer.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	if _, err := ledger.GetCustomer(owner.ID, customer.ID); !IsNotFound(err) {
		t.Fatalf("get purged customer err = %v, want NotFoundError", err)
	}
	var count int64
	db.Model(&models.Transaction{}).Where("customer_id = ?", customer.ID).Count(&count)
	if count != 0 {
		t.Fatalf("purged customer still has %d transactions", count)
	}
}

func TestPartitionIsolation(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	ownerA := createTestOwner(t, db, "9000000001")
	ownerB := createTestOwner(t, db, "9000000002")

	customerA, _ := ledger.CreateCustomer(ownerA.ID, "Alpha", "")
	ledger.ApplyTransaction(ownerA.ID, customerA.ID, 400, models.TransactionCredit, "")

	listB, err := ledger.ListCustomers(ownerB.ID, false)
	if err != nil {
		t.Fatalf("list for B: %v", err)
	}
	if len(listB) != 0 {
		t.Fatalf("owner B sees %d of owner A's customers", len(listB))
	}

	if _, err := ledger.GetCustomer(ownerB.ID, customerA.ID); !IsNotFound(err) {
		t.Fatalf("cross-partition get err = %v, want NotFoundError", err)
	}
	if _, err := ledger.ListTransactions(ownerB.ID, customerA.ID); !IsNotFound(err) {
		t.Fatalf("cross-partition list err = %v, want NotFoundError", err)
	}
	if _, _, err := ledger.ApplyTransaction(ownerB.ID, customerA.ID, 50, models.TransactionCredit, ""); !IsNotFound(err) {
		t.Fatalf("cross-partition apply err = %v, want NotFoundError", err)
	}
}

func TestListCustomersOrdering(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")

	for _, name := range []string{"Charlie", "Alice", "Bob"} {
		if _, err := ledger.CreateCustomer(owner.ID, name, ""); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	customers, err := ledger.ListCustomers(owner.ID, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Alice", "Bob", "Charlie"}
	if len(customers) != len(want) {
		t.Fatalf("len = %d, want %d", len(customers), len(want))
	}
	for i := range want {
		if customers[i].Name != want[i] {
			t.Errorf("customers[%d] = %s, want %s", i, customers[i].Name, want[i])
		}
	}
}

func TestDashboardSummary(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	owner := createTestOwner(t, db, "9876543210")

	c1, _ := ledger.CreateCustomer(owner.ID, "One", "")
	c2, _ := ledger.CreateCustomer(owner.ID, "Two", "")
	binned, _ := ledger.CreateCustomer(owner.ID, "Binned", "")

	ledger.ApplyTransaction(owner.ID, c1.ID, 300, models.TransactionCredit, "")
	ledger.ApplyTransaction(owner.ID, c1.ID, 100, models.TransactionPayment, "")
	ledger.ApplyTransaction(owner.ID, c2.ID, 500, models.TransactionCredit, "")
	ledger.ApplyTransaction(owner.ID, binned.ID, 900, models.TransactionCredit, "")
	ledger.SetDeleted(owner.ID, binned.ID, true)

	summary, err := ledger.Summary(owner.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !almostEqual(summary.TotalOutstanding, 700) {
		t.Errorf("TotalOutstanding = %v, want 700 (deleted customers excluded)", summary.TotalOutstanding)
	}
	if !almostEqual(summary.TodayCollection, 100) {
		t.Errorf("TodayCollection = %v, want 100", summary.TodayCollection)
	}
	if summary.ActiveCustomers != 2 {
		t.Errorf("ActiveCustomers = %d, want 2", summary.ActiveCustomers)
	}
}
