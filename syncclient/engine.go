package syncclient

import (
	"context"
	"fmt"
	"log"
	"time"

	"creditbook/localstore"
	"creditbook/models"
)

// Engine reconciles one owner partition between the local cache and the
// server. It makes exactly one attempt per call; backoff and retry belong
// to the scheduler driving it.
type Engine struct {
	Store *localstore.Store
	API   *Client
}

func NewEngine(store *localstore.Store, api *Client) *Engine {
	return &Engine{Store: store, API: api}
}

// Sync runs a full cycle: replay pending local writes first so the
// following pull reflects them, then pull the authoritative state.
func (e *Engine) Sync(ctx context.Context, owner string) error {
	if err := e.Push(ctx, owner); err != nil {
		return err
	}
	return e.Pull(ctx, owner)
}

// Pull brings the cache up to the server's state with a full-replace pull:
// every non-deleted customer and its complete history, upserted replace-by-id
// and marked synced. Each customer's batch is one local transaction, so an
// interrupted pull leaves earlier customers intact and never a customer
// without its transactions. Rows the pull did not touch are evicted once the
// whole pull succeeds; an abandoned pull skips eviction and the next pull
// self-heals.
func (e *Engine) Pull(ctx context.Context, owner string) error {
	epoch := time.Now().UnixNano()

	customers, err := e.API.ListCustomers(ctx, false)
	if err != nil {
		return fmt.Errorf("pull customers: %w", err)
	}
	deleted, err := e.API.ListCustomers(ctx, true)
	if err != nil {
		return fmt.Errorf("pull recycle bin: %w", err)
	}
	customers = append(customers, deleted...)

	for i := range customers {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := e.API.ListTransactions(ctx, customers[i].ID)
		if err != nil {
			return fmt.Errorf("pull transactions for %s: %w", customers[i].ID, err)
		}

		cached := cacheCustomer(&customers[i])
		cachedEntries := make([]localstore.CachedTransaction, len(entries))
		for j := range entries {
			cachedEntries[j] = cacheTransaction(&entries[j])
		}
		if err := e.Store.UpsertPulled(owner, epoch, cached, cachedEntries); err != nil {
			return fmt.Errorf("upsert customer %s: %w", customers[i].ID, err)
		}
	}

	if err := e.Store.EvictStale(owner, epoch); err != nil {
		return fmt.Errorf("evict stale rows: %w", err)
	}

	log.Printf("[SYNC] pull complete for %s: %d customers", owner, len(customers))
	return nil
}

// Push replays locally-originated rows to the server in creation order,
// customers before transactions so a pending entry's customer exists by the
// time it is replayed. The server assigns authoritative IDs and recomputes
// the balance; the cache adopts both. A failed row stays pending and is
// retried on the next cycle, so nothing is dropped.
func (e *Engine) Push(ctx context.Context, owner string) error {
	pending, err := e.Store.PendingCustomers(owner)
	if err != nil {
		return err
	}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		created, err := e.API.CreateCustomer(ctx, CreateCustomerRequest{
			Name:  pending[i].Name,
			Phone: pending[i].Phone,
		})
		if err != nil {
			return fmt.Errorf("push customer %s: %w", pending[i].ID, err)
		}
		if err := e.Store.AdoptServerCustomer(owner, pending[i].ID, cacheCustomer(created)); err != nil {
			return err
		}
	}

	entries, err := e.Store.PendingTransactions(owner)
	if err != nil {
		return err
	}
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		created, err := e.API.CreateTransaction(ctx, CreateTransactionRequest{
			CustomerID:  entries[i].CustomerID,
			Amount:      entries[i].Amount,
			Type:        entries[i].Type,
			Description: entries[i].Description,
		})
		if err != nil {
			return fmt.Errorf("push transaction %s: %w", entries[i].ID, err)
		}
		if err := e.Store.AdoptServerTransaction(owner, entries[i].ID, cacheTransaction(&created.Transaction), created.CustomerTotalDue); err != nil {
			return err
		}
	}

	if n := len(pending) + len(entries); n > 0 {
		log.Printf("[SYNC] push complete for %s: %d rows acknowledged", owner, n)
	}
	return nil
}

func cacheCustomer(c *models.Customer) localstore.CachedCustomer {
	return localstore.CachedCustomer{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		TotalDue:  c.TotalDue,
		IsDeleted: c.IsDeleted,
		CreatedAt: c.CreatedAt,
	}
}

func cacheTransaction(t *models.Transaction) localstore.CachedTransaction {
	return localstore.CachedTransaction{
		ID:          t.ID,
		CustomerID:  t.CustomerID,
		Amount:      t.Amount,
		Type:        t.Type,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}
