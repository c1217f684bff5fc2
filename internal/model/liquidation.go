package model

import (
	"time"

	"github.com/google/uuid"
)

type LiquidationRecord struct {
	ID                 uuid.UUID
	ContractID         uuid.UUID
	LiquidationNumber  string
	LiquidationDate    time.Time
	IsCancelled        bool
	CancellationReason *string
	CreatedAt          time.Time
}
