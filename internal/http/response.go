package http

import (
	"time"

	"github.com/nurpe/landuse-contracts/internal/model"
)

type contractResponse struct {
	ID                 string    `json:"id"`
	ContractNumber     string    `json:"contract_number"`
	Ward               string    `json:"ward"`
	OwnerName          string    `json:"owner_name"`
	SheetNumber        string    `json:"sheet_number"`
	PlotNumber         string    `json:"plot_number"`
	IsBranch           bool      `json:"is_branch"`
	Status             string    `json:"status"`
	Notes              *string   `json:"notes"`
	CancellationReason *string   `json:"cancellation_reason"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type detailsViewResponse struct {
	contractResponse
	LifecycleState         string     `json:"lifecycle_state"`
	LiquidationNumber      *string    `json:"liquidation_number"`
	LiquidationDate        *time.Time `json:"liquidation_date"`
	IsLiquidationCancelled bool       `json:"is_liquidation_cancelled"`
}

type liquidationResponse struct {
	ID                 string    `json:"id"`
	ContractID         string    `json:"contract_id"`
	LiquidationNumber  string    `json:"liquidation_number"`
	LiquidationDate    time.Time `json:"liquidation_date"`
	IsCancelled        bool      `json:"is_cancelled"`
	CancellationReason *string   `json:"cancellation_reason"`
	CreatedAt          time.Time `json:"created_at"`
}

type historyEntryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   *string   `json:"details"`
}

func toContractResponse(c model.Contract) contractResponse {
	return contractResponse{
		ID:                 c.ID.String(),
		ContractNumber:     c.ContractNumber,
		Ward:               c.Ward,
		OwnerName:          c.OwnerName,
		SheetNumber:        c.SheetNumber,
		PlotNumber:         c.PlotNumber,
		IsBranch:           c.IsBranch,
		Status:             string(c.Status),
		Notes:              c.Notes,
		CancellationReason: c.CancellationReason,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// toDetailsViewResponse reports the merged reason from the view, not the
// contract column.
func toDetailsViewResponse(v model.ContractDetailsView) detailsViewResponse {
	base := toContractResponse(v.Contract)
	base.CancellationReason = v.CancellationReason
	return detailsViewResponse{
		contractResponse:       base,
		LifecycleState:         v.State.String(),
		LiquidationNumber:      v.LiquidationNumber,
		LiquidationDate:        v.LiquidationDate,
		IsLiquidationCancelled: v.IsLiquidationCancelled,
	}
}

func toLiquidationResponse(r model.LiquidationRecord) liquidationResponse {
	return liquidationResponse{
		ID:                 r.ID.String(),
		ContractID:         r.ContractID.String(),
		LiquidationNumber:  r.LiquidationNumber,
		LiquidationDate:    r.LiquidationDate,
		IsCancelled:        r.IsCancelled,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
	}
}

func toHistoryEntryResponse(e model.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		Details:   e.Details,
	}
}
