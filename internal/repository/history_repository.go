package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/model"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, e model.HistoryEntry) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO history_entries (id, contract_id, timestamp, action, details)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.ContractID, e.Timestamp, e.Action, e.Details).Error
}

// ListByContract returns entries newest first.
func (r *HistoryRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT h.id, h.contract_id, h.timestamp, h.action, h.details
		FROM history_entries h
		WHERE h.contract_id = ?
		ORDER BY h.timestamp DESC, h.id DESC
	`, contractID).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
