package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/store"
)

// Options configures a Ledger. Zero values select the defaults.
type Options struct {
	// Clock returns the current instant. Defaults to time.Now.
	Clock func() time.Time
	// Location anchors calendar windows (day, month, year). Defaults to time.Local.
	Location *time.Location
	// EditWindow defaults to core.DefaultEditWindow.
	EditWindow time.Duration
	Taxonomy   core.Taxonomy
	Logger     *log.Logger
	// CacheSize bounds each aggregate cache; zero or less disables caching.
	CacheSize int
	CacheTTL  time.Duration
	// CacheManager, when set, evicts expired aggregate entries periodically.
	CacheManager *cache.Manager
	// NewID generates identifiers. Defaults to uuid.NewString.
	NewID func() string
}

// Ledger groups the engines that share one store, one lock set and one
// change-notification bus.
type Ledger struct {
	Accounts     *AccountService
	Transactions *TransactionService
	Transfers    *TransferService
	Aggregates   *AggregationService
	Budgets      *BudgetService

	deps *deps
}

// deps is the state every engine shares.
type deps struct {
	store    store.Store
	locks    *lockSet
	bus      *events.Bus
	clock    func() time.Time
	loc      *time.Location
	policy   core.EditPolicy
	taxonomy core.Taxonomy
	logger   *log.Logger
	newID    func() string
}

// New wires the engines on top of st.
func New(st store.Store, opts Options) *Ledger {
	d := &deps{
		store:    st,
		locks:    newLockSet(),
		bus:      events.NewBus(),
		clock:    opts.Clock,
		loc:      opts.Location,
		policy:   core.EditPolicy{Window: opts.EditWindow},
		taxonomy: opts.Taxonomy.OrDefault(),
		logger:   opts.Logger,
		newID:    opts.NewID,
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	if d.loc == nil {
		d.loc = time.Local
	}
	if d.logger == nil {
		d.logger = log.FromDefault(log.ComponentApp)
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}

	l := &Ledger{deps: d}
	l.Accounts = &AccountService{deps: d, log: d.logger.WithComponent(log.ComponentAccounts)}
	l.Transactions = &TransactionService{deps: d, accounts: l.Accounts, log: d.logger.WithComponent(log.ComponentTransaction)}
	l.Transfers = &TransferService{deps: d, accounts: l.Accounts, log: d.logger.WithComponent(log.ComponentTransfer)}
	l.Aggregates = newAggregationService(d, opts.CacheSize, opts.CacheTTL, opts.CacheManager)
	l.Budgets = &BudgetService{deps: d, aggregates: l.Aggregates, log: d.logger.WithComponent(log.ComponentBudget)}
	return l
}

// Events exposes the change-notification bus. Handlers run after a
// mutation commits; their failures are logged and never undo the mutation.
func (l *Ledger) Events() *events.Bus {
	return l.deps.bus
}

// Taxonomy returns the categories the ledger accepts.
func (l *Ledger) Taxonomy() core.Taxonomy {
	return l.deps.taxonomy
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	if err := l.deps.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

func (d *deps) now() time.Time {
	return d.clock().In(d.loc)
}

// emit publishes a committed change.
func (d *deps) emit(ctx context.Context, kind events.Kind, entityID string, at time.Time, accountIDs ...string) {
	e := events.Event{
		ID:         d.newID(),
		Kind:       kind,
		EntityID:   entityID,
		AccountIDs: accountIDs,
		OccurredAt: at,
	}
	if err := d.bus.Publish(ctx, e); err != nil {
		d.logger.WarnContext(ctx, "Change notification failed",
			log.FieldEventKind, string(kind), "entity_id", entityID, log.FieldError, err)
	}
}

// resolveAccount finds an account by id, then by exact name.
func resolveAccount(ctx context.Context, tx store.ReadTx, ref string) (core.Account, error) {
	a, err := tx.GetAccount(ctx, ref)
	if err == nil {
		return a, nil
	}
	if !isNotFound(err) {
		return core.Account{}, err
	}
	a, err = tx.GetAccountByName(ctx, ref)
	if err != nil {
		if isNotFound(err) {
			return core.Account{}, fmt.Errorf("account %q: %w", ref, core.ErrNotFound)
		}
		return core.Account{}, err
	}
	return a, nil
}
