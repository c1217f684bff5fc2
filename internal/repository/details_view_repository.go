package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/model"
)

// DetailsViewRepository loads contracts joined with their current liquidation
// record. It returns raw rows; the merge itself is model.ResolveDetailsView.
type DetailsViewRepository struct {
	db *gorm.DB
}

func NewDetailsViewRepository(db *gorm.DB) *DetailsViewRepository {
	return &DetailsViewRepository{db: db}
}

// ContractWithLiquidation is one contract and its current record, if any.
type ContractWithLiquidation struct {
	Contract model.Contract
	Current  *model.LiquidationRecord
}

type detailsRow struct {
	ID                 uuid.UUID
	ContractNumber     string
	Ward               string
	OwnerName          string
	SheetNumber        string
	PlotNumber         string
	IsBranch           bool
	Status             model.ContractStatus
	Notes              *string
	CancellationReason *string
	IdempotencyKey     *string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	LiqID                 *uuid.UUID
	LiqNumber             *string
	LiqDate               *time.Time
	LiqIsCancelled        *bool
	LiqCancellationReason *string
	LiqCreatedAt          *time.Time
}

const detailsSelect = `
	SELECT
		c.id,
		c.contract_number,
		c.ward,
		c.owner_name,
		c.sheet_number,
		c.plot_number,
		c.is_branch,
		c.status,
		c.notes,
		c.cancellation_reason,
		c.idempotency_key,
		c.created_at,
		c.updated_at,
		l.id AS liq_id,
		l.liquidation_number AS liq_number,
		l.liquidation_date AS liq_date,
		l.is_cancelled AS liq_is_cancelled,
		l.cancellation_reason AS liq_cancellation_reason,
		l.created_at AS liq_created_at
	FROM contracts c
	LEFT JOIN liquidation_records l ON l.id = (
		SELECT l2.id
		FROM liquidation_records l2
		WHERE l2.contract_id = c.id
		ORDER BY l2.created_at DESC, l2.id DESC
		LIMIT 1
	)
`

func (r *DetailsViewRepository) Get(ctx context.Context, id uuid.UUID) (*ContractWithLiquidation, error) {
	var rows []detailsRow
	if err := r.db.WithContext(ctx).Raw(detailsSelect+` WHERE c.id = ?`, id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	item := rows[0].toItem()
	return &item, nil
}

// List returns one page of contracts newest first together with the total
// number of matches.
func (r *DetailsViewRepository) List(ctx context.Context, filter model.ContractFilter) ([]ContractWithLiquidation, int64, error) {
	where, args := buildFilter(filter)

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM contracts c
		LEFT JOIN liquidation_records l ON l.id = (
			SELECT l2.id
			FROM liquidation_records l2
			WHERE l2.contract_id = c.id
			ORDER BY l2.created_at DESC, l2.id DESC
			LIMIT 1
		)
	` + where
	if err := r.db.WithContext(ctx).Raw(countQuery, args...).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	query := detailsSelect + where + ` ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]interface{}{}, args...), filter.Limit, filter.Offset)

	var rows []detailsRow
	if err := r.db.WithContext(ctx).Raw(query, pageArgs...).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]ContractWithLiquidation, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toItem())
	}
	return items, total, nil
}

func buildFilter(filter model.ContractFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if search := model.FoldSearch(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		clauses = append(clauses, `(
			c.search_text LIKE ? ESCAPE '\' OR
			COALESCE(l.search_text, '') LIKE ? ESCAPE '\'
		)`)
		args = append(args, pattern, pattern)
	}
	if filter.Status != nil {
		clauses = append(clauses, "c.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Ward != nil {
		clauses = append(clauses, "c.ward = ?")
		args = append(args, *filter.Ward)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (row detailsRow) toItem() ContractWithLiquidation {
	item := ContractWithLiquidation{
		Contract: model.Contract{
			ID:                 row.ID,
			ContractNumber:     row.ContractNumber,
			Ward:               row.Ward,
			OwnerName:          row.OwnerName,
			SheetNumber:        row.SheetNumber,
			PlotNumber:         row.PlotNumber,
			IsBranch:           row.IsBranch,
			Status:             row.Status,
			Notes:              row.Notes,
			CancellationReason: row.CancellationReason,
			IdempotencyKey:     row.IdempotencyKey,
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
		},
	}
	if row.LiqID != nil {
		rec := &model.LiquidationRecord{
			ID:                 *row.LiqID,
			ContractID:         row.ID,
			CancellationReason: row.LiqCancellationReason,
		}
		if row.LiqNumber != nil {
			rec.LiquidationNumber = *row.LiqNumber
		}
		if row.LiqDate != nil {
			rec.LiquidationDate = *row.LiqDate
		}
		if row.LiqIsCancelled != nil {
			rec.IsCancelled = *row.LiqIsCancelled
		}
		if row.LiqCreatedAt != nil {
			rec.CreatedAt = *row.LiqCreatedAt
		}
		item.Current = rec
	}
	return item
}
