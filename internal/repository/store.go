package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one connection or one transaction.
type Store struct {
	db *gorm.DB

	Contracts    *ContractRepository
	Liquidations *LiquidationRepository
	History      *HistoryRepository
	Sequences    *SequenceRepository
	Views        *DetailsViewRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Contracts:    NewContractRepository(db),
		Liquidations: NewLiquidationRepository(db),
		History:      NewHistoryRepository(db),
		Sequences:    NewSequenceRepository(db),
		Views:        NewDetailsViewRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single transaction. Any
// error returned by fn rolls back every write made through tx, including
// sequence allocations.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) DB() *gorm.DB {
	return s.db
}
