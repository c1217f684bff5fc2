package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusLiquidated ContractStatus = "LIQUIDATED"
	ContractStatusCancelled  ContractStatus = "CANCELLED"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractStatusActive, ContractStatusLiquidated, ContractStatusCancelled:
		return true
	}
	return false
}

type Contract struct {
	ID                 uuid.UUID
	ContractNumber     string
	Ward               string
	OwnerName          string
	SheetNumber        string
	PlotNumber         string
	IsBranch           bool
	Status             ContractStatus
	Notes              *string
	CancellationReason *string // set only while Status is CANCELLED
	IdempotencyKey     *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ContractDetails is the descriptive part of a contract that editDetails may change.
type ContractDetails struct {
	Ward        string
	OwnerName   string
	SheetNumber string
	PlotNumber  string
	IsBranch    bool
	Notes       *string
}
