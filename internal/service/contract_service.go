package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/cache"
	"github.com/nurpe/landuse-contracts/internal/config"
	"github.com/nurpe/landuse-contracts/internal/metrics"
	"github.com/nurpe/landuse-contracts/internal/model"
	"github.com/nurpe/landuse-contracts/internal/numbering"
	"github.com/nurpe/landuse-contracts/internal/repository"
)

// ContractService is the only writer of contracts, liquidation records,
// sequence counters and history. Each exported mutation runs as one
// transaction: identifier allocation, row changes and the history entry
// commit together or not at all.
type ContractService struct {
	store   *repository.Store
	cache   cache.ViewCache
	metrics *metrics.Metrics
	log     zerolog.Logger

	now             func() time.Time
	location        *time.Location
	defaultPageSize int
	maxPageSize     int
}

type Option func(*ContractService)

func WithClock(now func() time.Time) Option {
	return func(s *ContractService) { s.now = now }
}

func WithCache(c cache.ViewCache) Option {
	return func(s *ContractService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ContractService) { s.metrics = m }
}

func NewContractService(store *repository.Store, cfg *config.Config, log zerolog.Logger, opts ...Option) *ContractService {
	s := &ContractService{
		store:           store,
		cache:           cache.Noop{},
		log:             log.With().Str("component", "contracts").Logger(),
		now:             time.Now,
		location:        time.UTC,
		defaultPageSize: 20,
		maxPageSize:     200,
	}
	if cfg != nil {
		if cfg.Location != nil {
			s.location = cfg.Location
		}
		if cfg.Views.DefaultPageSize > 0 {
			s.defaultPageSize = cfg.Views.DefaultPageSize
		}
		if cfg.Views.MaxPageSize > 0 {
			s.maxPageSize = cfg.Views.MaxPageSize
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateContractInput struct {
	Ward           string
	OwnerName      string
	SheetNumber    string
	PlotNumber     string
	IsBranch       bool
	Notes          string
	IdempotencyKey string
}

type UpdateContractDetailsInput struct {
	Ward        string
	OwnerName   string
	SheetNumber string
	PlotNumber  string
	IsBranch    bool
	Notes       string
}

func (s *ContractService) CreateContract(ctx context.Context, input CreateContractInput) (contract *model.Contract, err error) {
	defer s.observe(model.OperationCreate, time.Now(), &err)

	details, err := normalizeDetails(input.Ward, input.OwnerName, input.SheetNumber, input.PlotNumber, input.IsBranch, input.Notes)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if len(key) > 128 {
		return nil, fmt.Errorf("%w: idempotency key longer than 128 characters", ErrValidation)
	}
	if key != "" {
		existing, err := s.store.Contracts.GetByIdempotencyKey(ctx, key)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, classify(err)
		}
	}

	now := s.clock()
	created := model.Contract{
		ID:          newID(),
		Ward:        details.Ward,
		OwnerName:   details.OwnerName,
		SheetNumber: details.SheetNumber,
		PlotNumber:  details.PlotNumber,
		IsBranch:    details.IsBranch,
		Status:      model.ContractStatusActive,
		Notes:       details.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if key != "" {
		created.IdempotencyKey = &key
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		number, err := s.allocate(ctx, tx, numbering.SeriesContract, now, created.Ward, created.IsBranch)
		if err != nil {
			return err
		}
		created.ContractNumber = number

		if err := tx.Contracts.Create(ctx, created); err != nil {
			return err
		}
		return s.record(ctx, tx, created.ID, model.HistoryActionCreated, &number, now)
	})
	if err != nil {
		if key != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent request with the same key won the insert.
			if existing, lookupErr := s.store.Contracts.GetByIdempotencyKey(ctx, key); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, classify(err)
	}

	s.metrics.IdentifierAllocated(string(numbering.SeriesContract))
	s.invalidate(ctx)
	s.log.Info().
		Str("contract_id", created.ID.String()).
		Str("contract_number", created.ContractNumber).
		Msg("contract created")
	return &created, nil
}

// LiquidateContract issues a new liquidation number and moves the contract to
// LIQUIDATED. A contract whose earlier liquidation was cancelled gets a fresh
// number; cancelled numbers are never handed out again.
func (s *ContractService) LiquidateContract(ctx context.Context, contractID uuid.UUID) (record *model.LiquidationRecord, err error) {
	defer s.observe(model.OperationLiquidate, time.Now(), &err)

	now := s.clock()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		contract, state, _, err := s.loadState(ctx, tx, contractID)
		if err != nil {
			return err
		}
		next, ok := state.Next(model.OperationLiquidate)
		if !ok {
			return fmt.Errorf("%w: cannot liquidate a contract in state %s", ErrInvalidState, state)
		}
		if err := s.transition(ctx, tx, contractID, state, next, nil, now); err != nil {
			return err
		}

		number, err := s.allocate(ctx, tx, numbering.SeriesLiquidation, now, contract.Ward, contract.IsBranch)
		if err != nil {
			return err
		}
		rec := model.LiquidationRecord{
			ID:                newID(),
			ContractID:        contractID,
			LiquidationNumber: number,
			LiquidationDate:   now,
			CreatedAt:         now,
		}
		if err := tx.Liquidations.Append(ctx, rec); err != nil {
			return err
		}
		record = &rec
		return s.record(ctx, tx, contractID, model.HistoryActionLiquidated, &number, now)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.metrics.IdentifierAllocated(string(numbering.SeriesLiquidation))
	s.invalidate(ctx)
	s.log.Info().
		Str("contract_id", contractID.String()).
		Str("liquidation_number", record.LiquidationNumber).
		Msg("contract liquidated")
	return record, nil
}

// CancelLiquidation reverses the current liquidation. The record keeps its
// number and stays current; the contract returns to ACTIVE.
func (s *ContractService) CancelLiquidation(ctx context.Context, contractID uuid.UUID, reason string) (err error) {
	defer s.observe(model.OperationCancelLiquidation, time.Now(), &err)

	reason, err = requireReason(reason)
	if err != nil {
		return err
	}

	now := s.clock()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		_, state, current, err := s.loadState(ctx, tx, contractID)
		if err != nil {
			return err
		}
		next, ok := state.Next(model.OperationCancelLiquidation)
		if !ok {
			return fmt.Errorf("%w: cannot cancel liquidation of a contract in state %s", ErrInvalidState, state)
		}

		marked, err := tx.Liquidations.MarkCancelled(ctx, current.ID, reason)
		if err != nil {
			return err
		}
		if !marked {
			return fmt.Errorf("%w: liquidation %s already cancelled", ErrInvalidState, current.LiquidationNumber)
		}
		if err := s.transition(ctx, tx, contractID, state, next, nil, now); err != nil {
			return err
		}
		return s.record(ctx, tx, contractID, model.HistoryActionLiquidationCancelled, &reason, now)
	})
	if err != nil {
		return classify(err)
	}

	s.invalidate(ctx)
	s.log.Info().Str("contract_id", contractID.String()).Msg("liquidation cancelled")
	return nil
}

// CancelContract is terminal. Only contracts that are not currently liquidated
// can be cancelled.
func (s *ContractService) CancelContract(ctx context.Context, contractID uuid.UUID, reason string) (err error) {
	defer s.observe(model.OperationCancelContract, time.Now(), &err)

	reason, err = requireReason(reason)
	if err != nil {
		return err
	}

	now := s.clock()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		_, state, _, err := s.loadState(ctx, tx, contractID)
		if err != nil {
			return err
		}
		next, ok := state.Next(model.OperationCancelContract)
		if !ok {
			return fmt.Errorf("%w: cannot cancel a contract in state %s", ErrInvalidState, state)
		}
		if err := s.transition(ctx, tx, contractID, state, next, &reason, now); err != nil {
			return err
		}
		return s.record(ctx, tx, contractID, model.HistoryActionContractCancelled, &reason, now)
	})
	if err != nil {
		return classify(err)
	}

	s.invalidate(ctx)
	s.log.Info().Str("contract_id", contractID.String()).Msg("contract cancelled")
	return nil
}

// UpdateContractDetails edits the descriptive fields. The contract number is
// kept even when ward or branch change.
func (s *ContractService) UpdateContractDetails(ctx context.Context, contractID uuid.UUID, input UpdateContractDetailsInput) (err error) {
	defer s.observe(model.OperationEditDetails, time.Now(), &err)

	details, err := normalizeDetails(input.Ward, input.OwnerName, input.SheetNumber, input.PlotNumber, input.IsBranch, input.Notes)
	if err != nil {
		return err
	}

	now := s.clock()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		contract, state, _, err := s.loadState(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if _, ok := state.Next(model.OperationEditDetails); !ok {
			return fmt.Errorf("%w: cannot edit a contract in state %s", ErrInvalidState, state)
		}

		updated, err := tx.Contracts.UpdateDetails(ctx, contractID, contract.ContractNumber, details, now)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: contract was cancelled concurrently", ErrInvalidState)
		}
		return s.record(ctx, tx, contractID, model.HistoryActionDetailsEdited, describeChanges(*contract, details), now)
	})
	if err != nil {
		return classify(err)
	}

	s.invalidate(ctx)
	s.log.Info().Str("contract_id", contractID.String()).Msg("contract details edited")
	return nil
}

func (s *ContractService) loadState(
	ctx context.Context,
	tx *repository.Store,
	contractID uuid.UUID,
) (*model.Contract, model.LifecycleState, *model.LiquidationRecord, error) {
	contract, err := tx.Contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, model.StateUnknown, nil, err
	}
	current, err := tx.Liquidations.CurrentFor(ctx, contractID)
	if err != nil {
		return nil, model.StateUnknown, nil, err
	}
	state, err := model.DeriveState(contract.Status, current)
	if err != nil {
		return nil, model.StateUnknown, nil, err
	}
	return contract, state, current, nil
}

// transition persists a status change guarded by the status it was read in, so
// two concurrent callers cannot both leave the same state.
func (s *ContractService) transition(
	ctx context.Context,
	tx *repository.Store,
	contractID uuid.UUID,
	from, to model.LifecycleState,
	reason *string,
	now time.Time,
) error {
	ok, err := tx.Contracts.TransitionStatus(ctx, contractID, from.Status(), to.Status(), reason, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: contract changed concurrently", ErrInvalidState)
	}
	return nil
}

func (s *ContractService) allocate(
	ctx context.Context,
	tx *repository.Store,
	series numbering.Series,
	now time.Time,
	ward string,
	isBranch bool,
) (string, error) {
	year := now.In(s.location).Year()
	seq, err := tx.Sequences.AllocateNext(ctx, string(series), year)
	if err != nil {
		return "", err
	}
	return numbering.Format(series, seq, year, numbering.ResolveCode(ward, isBranch)), nil
}

func (s *ContractService) record(
	ctx context.Context,
	tx *repository.Store,
	contractID uuid.UUID,
	action model.HistoryAction,
	details *string,
	now time.Time,
) error {
	return tx.History.Append(ctx, model.HistoryEntry{
		ID:         newID(),
		ContractID: contractID,
		Timestamp:  now,
		Action:     action,
		Details:    details,
	})
}

func (s *ContractService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *ContractService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("view cache invalidation failed")
	}
}

func (s *ContractService) observe(op model.Operation, start time.Time, err *error) {
	s.metrics.ObserveTransition(string(op), resultLabel(*err), time.Since(start))
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func normalizeDetails(ward, ownerName, sheetNumber, plotNumber string, isBranch bool, notes string) (model.ContractDetails, error) {
	d := model.ContractDetails{
		Ward:        numbering.NormalizeWard(ward),
		OwnerName:   strings.TrimSpace(ownerName),
		SheetNumber: strings.TrimSpace(sheetNumber),
		PlotNumber:  strings.TrimSpace(plotNumber),
		IsBranch:    isBranch,
	}
	if n := strings.TrimSpace(notes); n != "" {
		d.Notes = &n
	}

	var missing []string
	if d.OwnerName == "" {
		missing = append(missing, "owner_name")
	}
	if d.SheetNumber == "" {
		missing = append(missing, "sheet_number")
	}
	if d.PlotNumber == "" {
		missing = append(missing, "plot_number")
	}
	if len(missing) > 0 {
		return d, fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}
	return d, nil
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", fmt.Errorf("%w: reason is required", ErrValidation)
	}
	return reason, nil
}

func describeChanges(before model.Contract, after model.ContractDetails) *string {
	var changed []string
	if before.Ward != after.Ward {
		changed = append(changed, fmt.Sprintf("ward: %s -> %s", before.Ward, after.Ward))
	}
	if before.OwnerName != after.OwnerName {
		changed = append(changed, fmt.Sprintf("owner_name: %s -> %s", before.OwnerName, after.OwnerName))
	}
	if before.SheetNumber != after.SheetNumber {
		changed = append(changed, fmt.Sprintf("sheet_number: %s -> %s", before.SheetNumber, after.SheetNumber))
	}
	if before.PlotNumber != after.PlotNumber {
		changed = append(changed, fmt.Sprintf("plot_number: %s -> %s", before.PlotNumber, after.PlotNumber))
	}
	if before.IsBranch != after.IsBranch {
		changed = append(changed, fmt.Sprintf("is_branch: %t -> %t", before.IsBranch, after.IsBranch))
	}
	if derefString(before.Notes) != derefString(after.Notes) {
		changed = append(changed, "notes")
	}
	if len(changed) == 0 {
		return nil
	}
	out := strings.Join(changed, "; ")
	return &out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
