package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/landuse-contracts/internal/model"
	"github.com/nurpe/landuse-contracts/internal/numbering"
	"github.com/nurpe/landuse-contracts/internal/repository"
)

// GetContractDetailsView returns the contract merged with its current
// liquidation record.
func (s *ContractService) GetContractDetailsView(ctx context.Context, contractID uuid.UUID) (*model.ContractDetailsView, error) {
	item, err := s.store.Views.Get(ctx, contractID)
	if err != nil {
		return nil, classify(err)
	}
	view, err := resolve(*item)
	if err != nil {
		return nil, classify(err)
	}
	return &view, nil
}

// ListContractDetailsViews pages through merged views newest first. Pages may
// be served from the view cache and lag writes by up to its TTL.
func (s *ContractService) ListContractDetailsViews(ctx context.Context, filter model.ContractFilter) (*model.ContractDetailsPage, error) {
	filter, err := s.normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	// Keyed before the query: a write committing meanwhile orphans this page.
	key, err := s.cache.PageKey(ctx, filter)
	if err != nil {
		s.log.Warn().Err(err).Msg("view cache key failed")
	} else if page, ok, err := s.cache.GetPage(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("view cache read failed")
	} else if ok {
		return page, nil
	}

	items, total, err := s.store.Views.List(ctx, filter)
	if err != nil {
		return nil, classify(err)
	}
	page := &model.ContractDetailsPage{
		Items: make([]model.ContractDetailsView, 0, len(items)),
		Total: total,
	}
	for _, item := range items {
		view, err := resolve(item)
		if err != nil {
			return nil, classify(err)
		}
		page.Items = append(page.Items, view)
	}

	if key != "" {
		if err := s.cache.SetPage(ctx, key, page); err != nil {
			s.log.Warn().Err(err).Msg("view cache write failed")
		}
	}
	return page, nil
}

// GetHistory returns the audit log of a contract, newest first.
func (s *ContractService) GetHistory(ctx context.Context, contractID uuid.UUID) ([]model.HistoryEntry, error) {
	if _, err := s.store.Contracts.GetByID(ctx, contractID); err != nil {
		return nil, classify(err)
	}
	entries, err := s.store.History.ListByContract(ctx, contractID)
	if err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// ListLiquidations returns every liquidation attempt of a contract, newest
// first, cancelled ones included.
func (s *ContractService) ListLiquidations(ctx context.Context, contractID uuid.UUID) ([]model.LiquidationRecord, error) {
	if _, err := s.store.Contracts.GetByID(ctx, contractID); err != nil {
		return nil, classify(err)
	}
	records, err := s.store.Liquidations.ListFor(ctx, contractID)
	if err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (s *ContractService) normalizeFilter(filter model.ContractFilter) (model.ContractFilter, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Status != nil && !filter.Status.Valid() {
		return filter, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	if filter.Ward != nil {
		ward := numbering.NormalizeWard(*filter.Ward)
		if ward == "" {
			filter.Ward = nil
		} else {
			filter.Ward = &ward
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return filter, fmt.Errorf("%w: limit and offset must not be negative", ErrValidation)
	}
	if filter.Limit == 0 {
		filter.Limit = s.defaultPageSize
	}
	if filter.Limit > s.maxPageSize {
		filter.Limit = s.maxPageSize
	}
	return filter, nil
}

func resolve(item repository.ContractWithLiquidation) (model.ContractDetailsView, error) {
	return model.ResolveDetailsView(item.Contract, item.Current)
}
