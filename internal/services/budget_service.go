package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/store"
)

// BudgetService defines spending ceilings and evaluates them against the
// expenses the aggregation engine reports.
type BudgetService struct {
	*deps
	aggregates *AggregationService
	log        *log.Logger
}

// Create stores a new budget. Several budgets may share a category and
// period; each is evaluated on its own.
func (s *BudgetService) Create(ctx context.Context, category string, amount core.Money, period core.Period) (core.Budget, error) {
	b, err := s.create(ctx, category, amount, period)
	if err != nil {
		s.log.WarnContext(ctx, "Budget rejected",
			log.NewFields().WithOperation(log.OpCreate).WithError(err, core.Kind(err)).ToSlice()...)
		return core.Budget{}, err
	}
	s.log.InfoContext(ctx, "Budget created",
		log.NewFields().WithBudget(b.ID, b.Category, b.Amount.Cents).ToSlice()...)
	s.emit(ctx, events.BudgetCreated, b.ID, b.CreatedAt)
	return b, nil
}

func (s *BudgetService) create(ctx context.Context, category string, amount core.Money, period core.Period) (core.Budget, error) {
	if err := amount.Validate(); err != nil {
		return core.Budget{}, err
	}
	p, err := core.ParsePeriod(string(period))
	if err != nil {
		return core.Budget{}, err
	}
	cat, err := s.taxonomy.Category(core.Expense, category)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget category %q: %w", category, err)
	}

	b := core.Budget{
		ID:        s.newID(),
		Category:  cat,
		Amount:    amount,
		Period:    p,
		CreatedAt: s.now(),
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		return tx.InsertBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// Delete removes a budget unconditionally.
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteBudget(ctx, id)
	})
	if err != nil {
		s.log.WarnContext(ctx, "Budget deletion rejected",
			log.NewFields().WithOperation(log.OpDelete).WithError(err, core.Kind(err)).ToSlice()...)
		return err
	}
	s.log.InfoContext(ctx, "Budget deleted", log.FieldBudgetID, id)
	s.emit(ctx, events.BudgetDeleted, id, s.now())
	return nil
}

// Get returns one budget.
func (s *BudgetService) Get(ctx context.Context, id string) (core.Budget, error) {
	var b core.Budget
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		b, err = tx.GetBudget(ctx, id)
		return err
	})
	return b, err
}

// List returns every budget in creation order.
func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		out, err = tx.ListBudgets(ctx)
		return err
	})
	return out, err
}

// Status evaluates b at the current time. It reads state but never writes it.
func (s *BudgetService) Status(ctx context.Context, b core.Budget) (core.BudgetReport, error) {
	if err := b.Period.Validate(); err != nil {
		return core.BudgetReport{}, err
	}
	now := s.now()
	w, err := core.ResolveWindow(b.Period.Range(), now)
	if err != nil {
		return core.BudgetReport{}, err
	}
	txns, err := s.aggregates.expensesSince(ctx, w.Start, now)
	if err != nil {
		return core.BudgetReport{}, err
	}
	return core.EvaluateBudget(b, txns, now)
}

// StatusByID loads and evaluates one budget.
func (s *BudgetService) StatusByID(ctx context.Context, id string) (core.BudgetReport, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return core.BudgetReport{}, err
	}
	return s.Status(ctx, b)
}

// StatusAll evaluates every budget against a single expense scan.
func (s *BudgetService) StatusAll(ctx context.Context) (core.BudgetOverview, error) {
	budgets, err := s.List(ctx)
	if err != nil {
		return core.BudgetOverview{}, err
	}
	now := s.now()
	start, ok := core.EarliestBudgetStart(budgets, now)
	if !ok {
		return core.Overview(nil, nil, now)
	}
	txns, err := s.aggregates.expensesSince(ctx, start, now)
	if err != nil {
		return core.BudgetOverview{}, err
	}
	return core.Overview(budgets, txns, now)
}
