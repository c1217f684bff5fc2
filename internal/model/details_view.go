package model

import "time"

// ContractDetailsView joins a contract with its current liquidation record.
type ContractDetailsView struct {
	Contract               Contract
	State                  LifecycleState
	LiquidationNumber      *string
	LiquidationDate        *time.Time
	IsLiquidationCancelled bool
	// CancellationReason is the contract's own reason when it is cancelled,
	// otherwise the reason of a cancelled current liquidation.
	CancellationReason *string
}

// ResolveDetailsView is the only place the merged view is computed. Every read
// path goes through it so consumers never re-derive the reason or the flags.
func ResolveDetailsView(contract Contract, current *LiquidationRecord) (ContractDetailsView, error) {
	state, err := DeriveState(contract.Status, current)
	if err != nil {
		return ContractDetailsView{}, err
	}

	view := ContractDetailsView{
		Contract: contract,
		State:    state,
	}
	if current != nil {
		number := current.LiquidationNumber
		date := current.LiquidationDate
		view.LiquidationNumber = &number
		view.LiquidationDate = &date
		view.IsLiquidationCancelled = current.IsCancelled
	}

	switch {
	case contract.Status == ContractStatusCancelled:
		view.CancellationReason = contract.CancellationReason
	case current != nil && current.IsCancelled:
		view.CancellationReason = current.CancellationReason
	}
	return view, nil
}

type ContractFilter struct {
	Search string
	Status *ContractStatus
	Ward   *string
	Limit  int
	Offset int
}

type ContractDetailsPage struct {
	Items []ContractDetailsView
	Total int64
}
