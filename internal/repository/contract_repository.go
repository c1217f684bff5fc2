package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/model"
)

const contractColumns = `
	id,
	contract_number,
	ward,
	owner_name,
	sheet_number,
	plot_number,
	is_branch,
	status,
	notes,
	cancellation_reason,
	idempotency_key,
	created_at,
	updated_at
`

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, c model.Contract) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO contracts (`+contractColumns+`, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.ContractNumber,
		c.Ward,
		c.OwnerName,
		c.SheetNumber,
		c.PlotNumber,
		c.IsBranch,
		c.Status,
		c.Notes,
		c.CancellationReason,
		c.IdempotencyKey,
		c.CreatedAt,
		c.UpdatedAt,
		model.ContractSearchText(c.ContractNumber, c.OwnerName, c.PlotNumber),
	).Error
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *ContractRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Contract, error) {
	var c model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE idempotency_key = ?
		LIMIT 1
	`, key).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

// TransitionStatus moves the contract from one status to another only if it is
// still in the expected status. It reports false when another writer got there
// first, which callers treat as an illegal transition.
func (r *ContractRepository) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.ContractStatus,
	cancellationReason *string,
	at time.Time,
) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET
			status = ?,
			cancellation_reason = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, to, cancellationReason, at, id, from)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateDetails rewrites the descriptive fields of a contract that is not
// cancelled. Status, number and creation time are never touched here; the
// number is only needed to rebuild the search text.
func (r *ContractRepository) UpdateDetails(
	ctx context.Context,
	id uuid.UUID,
	contractNumber string,
	d model.ContractDetails,
	at time.Time,
) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET
			ward = ?,
			owner_name = ?,
			sheet_number = ?,
			plot_number = ?,
			is_branch = ?,
			notes = ?,
			search_text = ?,
			updated_at = ?
		WHERE id = ? AND status <> ?
	`,
		d.Ward,
		d.OwnerName,
		d.SheetNumber,
		d.PlotNumber,
		d.IsBranch,
		d.Notes,
		model.ContractSearchText(contractNumber, d.OwnerName, d.PlotNumber),
		at,
		id,
		model.ContractStatusCancelled,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
