package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/store"
)

// recentLimit is how many transactions a dashboard lists.
const recentLimit = 10

const allTimeKey = "all"

// AggregationService computes read-only views over the transaction set.
// Results for calendar-anchored windows and the all-time category breakdown
// are cached until the next transaction change; rolling windows are always
// recomputed because their start moves with the clock.
type AggregationService struct {
	*deps
	log *log.Logger

	summaries  *cache.LRUCache[core.Summary]
	categories *cache.LRUCache[[]core.CategoryAmount]

	// mu orders invalidation against cache fills; generation counts invalidations.
	mu         sync.Mutex
	generation uint64
}

// Dashboard bundles the figures a caller needs for an overview screen.
type Dashboard struct {
	Summary     core.Summary
	Net         core.Money
	SavingsRate decimal.Decimal
	Categories  []core.CategoryAmount
	Recent      []core.Transaction
}

func newAggregationService(d *deps, size int, ttl time.Duration, m *cache.Manager) *AggregationService {
	s := &AggregationService{deps: d, log: d.logger.WithComponent(log.ComponentAggregation)}
	if size > 0 {
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		s.summaries = cache.NewLRUCache[core.Summary](size, ttl)
		s.categories = cache.NewLRUCache[[]core.CategoryAmount](size, ttl)
		if m != nil {
			m.Register(s.summaries)
			m.Register(s.categories)
		}
	}
	d.bus.Subscribe(func(ctx context.Context, e events.Event) error {
		switch e.Kind {
		case events.TransactionRecorded, events.TransactionUpdated:
			s.invalidate(ctx)
		}
		return nil
	})
	return s
}

func (s *AggregationService) cached() bool {
	return s.summaries != nil
}

// invalidate drops cached results and bumps the generation so computations
// that started before the change do not store stale values.
func (s *AggregationService) invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if !s.cached() {
		return
	}
	s.summaries.Clear()
	s.categories.Clear()
	s.log.DebugContext(ctx, "Aggregate cache invalidated")
}

func (s *AggregationService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// fill runs set only if no invalidation happened since gen was read.
func (s *AggregationService) fill(gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		set()
	}
}

func cacheKey(r core.Range, start time.Time) string {
	return fmt.Sprintf("%s:%d", r, start.UnixNano())
}

// Summary totals income and expense created within the window r resolves to now.
func (s *AggregationService) Summary(ctx context.Context, r core.Range) (core.Summary, error) {
	return s.summaryAt(ctx, r, s.now())
}

func (s *AggregationService) summaryAt(ctx context.Context, r core.Range, now time.Time) (core.Summary, error) {
	resolver, err := core.GetWindowResolver(r)
	if err != nil {
		return core.Summary{}, err
	}
	w := core.Window{Start: resolver.Start(now), End: now}

	useCache := s.cached() && resolver.Calendar()
	key := cacheKey(r, w.Start)
	if useCache {
		if sum, ok := s.summaries.Get(key); ok {
			sum.Window = w
			return sum, nil
		}
	}

	gen := s.currentGeneration()
	txns, err := s.transactions(ctx, store.TransactionQuery{Since: w.Start, Until: w.End})
	if err != nil {
		return core.Summary{}, err
	}
	sum, err := core.Summarize(txns, w)
	if err != nil {
		return core.Summary{}, err
	}
	sum.Range = r

	if useCache {
		s.fill(gen, func() { s.summaries.Set(key, sum) })
	}
	return sum, nil
}

// CategorySummary groups every expense ever recorded by category.
func (s *AggregationService) CategorySummary(ctx context.Context) ([]core.CategoryAmount, error) {
	if s.cached() {
		if cats, ok := s.categories.Get(allTimeKey); ok {
			return append([]core.CategoryAmount(nil), cats...), nil
		}
	}

	gen := s.currentGeneration()
	txns, err := s.transactions(ctx, store.TransactionQuery{Type: core.Expense})
	if err != nil {
		return nil, err
	}
	cats, err := core.SummarizeByCategory(txns)
	if err != nil {
		return nil, err
	}

	if s.cached() {
		s.fill(gen, func() { s.categories.Set(allTimeKey, append([]core.CategoryAmount(nil), cats...)) })
	}
	return cats, nil
}

// CategorySummaryIn groups the expenses created within the window of r.
func (s *AggregationService) CategorySummaryIn(ctx context.Context, r core.Range) ([]core.CategoryAmount, error) {
	return s.categoriesAt(ctx, r, s.now())
}

func (s *AggregationService) categoriesAt(ctx context.Context, r core.Range, now time.Time) ([]core.CategoryAmount, error) {
	w, err := core.ResolveWindow(r, now)
	if err != nil {
		return nil, err
	}
	txns, err := s.transactions(ctx, store.TransactionQuery{Since: w.Start, Until: w.End, Type: core.Expense})
	if err != nil {
		return nil, err
	}
	return core.SummarizeByCategory(txns)
}

// Dashboard computes summary, category breakdown and recent activity
// concurrently. All three use the same instant but separate snapshots.
func (s *AggregationService) Dashboard(ctx context.Context, r core.Range) (Dashboard, error) {
	if _, err := core.GetWindowResolver(r); err != nil {
		return Dashboard{}, err
	}
	now := s.now()

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := s.summaryAt(gctx, r, now)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		d.Summary = sum
		return nil
	})
	g.Go(func() error {
		cats, err := s.categoriesAt(gctx, r, now)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		d.Categories = cats
		return nil
	})
	g.Go(func() error {
		txns, err := s.transactions(gctx, store.TransactionQuery{Until: now})
		if err != nil {
			return fmt.Errorf("recent transactions: %w", err)
		}
		d.Recent = core.TransactionFilter{Order: core.NewestFirst, Limit: recentLimit}.Apply(txns)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d.Net = d.Summary.Net()
	d.SavingsRate = d.Summary.SavingsRate()
	return d, nil
}

// expensesSince returns the expenses created in [since, now].
func (s *AggregationService) expensesSince(ctx context.Context, since, now time.Time) ([]core.Transaction, error) {
	return s.transactions(ctx, store.TransactionQuery{Since: since, Until: now, Type: core.Expense})
}

func (s *AggregationService) transactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	var out []core.Transaction
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		out, err = tx.ListTransactions(ctx, q)
		return err
	})
	return out, err
}
