package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/model"
)

// LiquidationRepository is the append-only ledger of liquidation attempts.
// Records are inserted by liquidate and only ever flagged as cancelled.
type LiquidationRepository struct {
	db *gorm.DB
}

func NewLiquidationRepository(db *gorm.DB) *LiquidationRepository {
	return &LiquidationRepository{db: db}
}

func (r *LiquidationRepository) Append(ctx context.Context, rec model.LiquidationRecord) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO liquidation_records (
			id,
			contract_id,
			liquidation_number,
			liquidation_date,
			is_cancelled,
			cancellation_reason,
			search_text,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.ContractID,
		rec.LiquidationNumber,
		rec.LiquidationDate,
		rec.IsCancelled,
		rec.CancellationReason,
		model.FoldSearch(rec.LiquidationNumber),
		rec.CreatedAt,
	).Error
}

// MarkCancelled flags a live record. It reports false when the record is
// missing or already cancelled.
func (r *LiquidationRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE liquidation_records
		SET is_cancelled = ?, cancellation_reason = ?
		WHERE id = ? AND is_cancelled = ?
	`, true, reason, id, false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CurrentFor returns the most recently created record for the contract whether
// or not it was cancelled, or nil when the contract was never liquidated.
func (r *LiquidationRepository) CurrentFor(ctx context.Context, contractID uuid.UUID) (*model.LiquidationRecord, error) {
	var rows []model.LiquidationRecord
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			contract_id,
			liquidation_number,
			liquidation_date,
			is_cancelled,
			cancellation_reason,
			created_at
		FROM liquidation_records
		WHERE contract_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, contractID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *LiquidationRepository) ListFor(ctx context.Context, contractID uuid.UUID) ([]model.LiquidationRecord, error) {
	var rows []model.LiquidationRecord
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			contract_id,
			liquidation_number,
			liquidation_date,
			is_cancelled,
			cancellation_reason,
			created_at
		FROM liquidation_records
		WHERE contract_id = ?
		ORDER BY created_at DESC, id DESC
	`, contractID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
