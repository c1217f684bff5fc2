package model

import (
	"time"

	"github.com/google/uuid"
)

type HistoryAction string

const (
	HistoryActionCreated              HistoryAction = "created"
	HistoryActionLiquidated           HistoryAction = "liquidated"
	HistoryActionLiquidationCancelled HistoryAction = "liquidation cancelled"
	HistoryActionContractCancelled    HistoryAction = "contract cancelled"
	HistoryActionDetailsEdited        HistoryAction = "details edited"
)

type HistoryEntry struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	Timestamp  time.Time
	Action     HistoryAction
	Details    *string
}

type YearlySequenceCounter struct {
	SeriesName string
	Year       int
	LastValue  int64
}
