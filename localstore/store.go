// Package localstore is the on-device durable cache: a per-owner mirror of
// the server ledger for offline reads, plus the queue of locally-originated
// rows awaiting server acknowledgment. It is not a second source of truth;
// on logout it is purged and rebuilt, never merged across identities.
package localstore

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CachedCustomer mirrors a server customer. Lifecycle state (IsDeleted) and
// sync state (IsSynced) are orthogonal and never conflated.
type CachedCustomer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerPhone string    `gorm:"index;not null"`

	Name      string
	Phone     string
	TotalDue  float64
	IsDeleted bool

	// False until the server has acknowledged this row.
	IsSynced bool `gorm:"index"`
	// Epoch of the last successful pull that touched this row; stale synced
	// rows are evicted when a newer pull completes without them.
	PullEpoch int64 `gorm:"index"`

	CreatedAt time.Time
}

// CachedTransaction mirrors a server ledger entry.
type CachedTransaction struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerPhone string    `gorm:"index;not null"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`

	Amount      float64
	Type        string
	Description string

	IsSynced  bool  `gorm:"index"`
	PullEpoch int64 `gorm:"index"`

	CreatedAt time.Time
}

// Store wraps the sqlite cache. The mutex serializes writes (and the
// restore path's handle swap) against each other while readers share it,
// so readers observe either the pre-batch or post-batch snapshot and never
// a closed handle.
type Store struct {
	mu   sync.RWMutex
	db   *gorm.DB
	path string
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.AutoMigrate(&CachedCustomer{}, &CachedTransaction{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertPulled applies one customer and its full transaction history as a
// single local transaction, replace-by-id, marking everything synced and
// stamped with the pull epoch. Grouping per customer means a reader never
// sees a customer without its transactions.
func (s *Store) UpsertPulled(owner string, epoch int64, customer CachedCustomer, entries []CachedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.OwnerPhone = owner
	customer.IsSynced = true
	customer.PullEpoch = epoch

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&customer).Error; err != nil {
			return err
		}
		for i := range entries {
			entries[i].OwnerPhone = owner
			entries[i].CustomerID = customer.ID
			entries[i].IsSynced = true
			entries[i].PullEpoch = epoch
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EvictStale removes synced rows the latest successful pull did not touch.
// This is how server-side deletions reach a stale cache. Pending rows are
// never evicted.
func (s *Store) EvictStale(owner string, epoch int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_phone = ? AND is_synced = ? AND pull_epoch <> ?", owner, true, epoch).
			Delete(&CachedTransaction{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_phone = ? AND is_synced = ? AND pull_epoch <> ?", owner, true, epoch).
			Delete(&CachedCustomer{}).Error
	})
}

// CreatePendingCustomer records a locally-originated customer so the UI can
// show it before the network is involved. It stays pending until a push
// cycle replays it.
func (s *Store) CreatePendingCustomer(owner, name, phone string) (*CachedCustomer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer := CachedCustomer{
		ID:         uuid.New(),
		OwnerPhone: owner,
		Name:       name,
		Phone:      phone,
		IsSynced:   false,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreatePendingTransaction records a locally-originated ledger entry and
// optimistically adjusts the cached balance so reads reflect it. The server
// recomputes the authoritative balance on push; the local arithmetic is
// display-only.
func (s *Store) CreatePendingTransaction(owner string, customerID uuid.UUID, amount float64, txType, description string) (*CachedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	entry := CachedTransaction{
		ID:          uuid.New(),
		OwnerPhone:  owner,
		CustomerID:  customerID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		IsSynced:    false,
	}

	delta := amount
	if txType == "PAYMENT" {
		delta = -amount
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&CachedCustomer{}).
			Where("owner_phone = ? AND id = ?", owner, customerID).
			Update("total_due", gorm.Expr("total_due + ?", delta)).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PendingCustomers returns unacknowledged customers in creation order.
func (s *Store) PendingCustomers(owner string) ([]CachedCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var customers []CachedCustomer
	err := s.db.Where("owner_phone = ? AND is_synced = ?", owner, false).
		Order("created_at ASC").
		Find(&customers).Error
	return customers, err
}

// PendingTransactions returns unacknowledged ledger entries in creation order.
func (s *Store) PendingTransactions(owner string) ([]CachedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []CachedTransaction
	err := s.db.Where("owner_phone = ? AND is_synced = ?", owner, false).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// AdoptServerCustomer re-keys a pending customer to the ID the server
// assigned, repoints its pending transactions, and marks the row synced.
func (s *Store) AdoptServerCustomer(owner string, localID uuid.UUID, server CachedCustomer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CachedCustomer{}).
			Where("owner_phone = ? AND id = ?", owner, localID).
			Updates(map[string]interface{}{
				"id":        server.ID,
				"name":      server.Name,
				"phone":     server.Phone,
				"total_due": server.TotalDue,
				"is_synced": true,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("pending customer %s not found", localID)
		}
		return tx.Model(&CachedTransaction{}).
			Where("owner_phone = ? AND customer_id = ?", owner, localID).
			Update("customer_id", server.ID).Error
	})
}

// AdoptServerTransaction re-keys a pending ledger entry to its server
// identity and records the server's post-apply balance on the customer.
func (s *Store) AdoptServerTransaction(owner string, localID uuid.UUID, server CachedTransaction, customerTotalDue float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CachedTransaction{}).
			Where("owner_phone = ? AND id = ?", owner, localID).
			Updates(map[string]interface{}{
				"id":        server.ID,
				"is_synced": true,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("pending transaction %s not found", localID)
		}
		return tx.Model(&CachedCustomer{}).
			Where("owner_phone = ? AND id = ?", owner, server.CustomerID).
			Update("total_due", customerTotalDue).Error
	})
}

// Customers is the UI read path, filtered by recycle-bin state. Active
// customers come back ordered by name, matching the server.
func (s *Store) Customers(owner string, deleted bool) ([]CachedCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var customers []CachedCustomer
	query := s.db.Where("owner_phone = ? AND is_deleted = ?", owner, deleted)
	if !deleted {
		query = query.Order("name ASC")
	}
	err := query.Find(&customers).Error
	return customers, err
}

// Transactions returns a cached customer's history in creation order.
func (s *Store) Transactions(owner string, customerID uuid.UUID) ([]CachedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []CachedTransaction
	err := s.db.Where("owner_phone = ? AND customer_id = ?", owner, customerID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// Purge drops everything cached for one owner. Called on logout and session
// switch so identities never bleed into each other.
func (s *Store) Purge(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_phone = ?", owner).Delete(&CachedTransaction{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_phone = ?", owner).Delete(&CachedCustomer{}).Error
	})
}

// Snapshot serializes the whole durable store as an opaque blob for backup.
func (s *Store) Snapshot() ([]byte, error) {
	if s.path == "" || strings.Contains(s.path, ":memory:") {
		return nil, errors.New("snapshot requires a file-backed store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Flush WAL pages into the main file before reading it.
	s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return os.ReadFile(s.path)
}

// Restore overwrites the durable store with a downloaded blob wholesale.
// No event replay, no reconciliation: the blob is the new cache. The swap
// of the underlying handle happens under the write lock, so in-flight
// readers finish on the old handle before it closes and later readers see
// the restored one.
func (s *Store) Restore(data []byte) error {
	if s.path == "" || strings.Contains(s.path, ":memory:") {
		return errors.New("restore requires a file-backed store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("reopen local store: %w", err)
	}
	s.db = db
	return nil
}
