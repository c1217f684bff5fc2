package model

import (
	"errors"
	"fmt"
)

// LifecycleState is the single source of truth for where a contract sits in its
// lifecycle. It folds the persisted status and the cancelled flag of the current
// liquidation record into one value so combinations such as "liquidated with a
// reversed liquidation" cannot be expressed.
type LifecycleState int

const (
	StateUnknown LifecycleState = iota
	StateActive
	StateActiveLiquidationReversed
	StateLiquidated
	StateCancelled
)

var ErrInconsistentState = errors.New("inconsistent lifecycle state")

func (s LifecycleState) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateActiveLiquidationReversed:
		return "ACTIVE_LIQUIDATION_REVERSED"
	case StateLiquidated:
		return "LIQUIDATED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Status is the persisted status column for the state.
func (s LifecycleState) Status() ContractStatus {
	switch s {
	case StateActive, StateActiveLiquidationReversed:
		return ContractStatusActive
	case StateLiquidated:
		return ContractStatusLiquidated
	case StateCancelled:
		return ContractStatusCancelled
	default:
		return ""
	}
}

func (s LifecycleState) IsLiquidationCancelled() bool {
	return s == StateActiveLiquidationReversed
}

type Operation string

const (
	OperationCreate            Operation = "create"
	OperationLiquidate         Operation = "liquidate"
	OperationCancelLiquidation Operation = "cancel_liquidation"
	OperationCancelContract    Operation = "cancel_contract"
	OperationEditDetails       Operation = "edit_details"
)

// Next returns the state reached by applying op, or false when op is not allowed
// from s. Cancelled is terminal; editing never changes the state.
func (s LifecycleState) Next(op Operation) (LifecycleState, bool) {
	switch op {
	case OperationLiquidate:
		if s == StateActive || s == StateActiveLiquidationReversed {
			return StateLiquidated, true
		}
	case OperationCancelLiquidation:
		if s == StateLiquidated {
			return StateActiveLiquidationReversed, true
		}
	case OperationCancelContract:
		if s == StateActive || s == StateActiveLiquidationReversed {
			return StateCancelled, true
		}
	case OperationEditDetails:
		if s == StateActive || s == StateActiveLiquidationReversed || s == StateLiquidated {
			return s, true
		}
	}
	return s, false
}

// DeriveState rebuilds the lifecycle state from the stored status and the current
// liquidation record (nil when the contract was never liquidated).
func DeriveState(status ContractStatus, current *LiquidationRecord) (LifecycleState, error) {
	switch status {
	case ContractStatusActive:
		if current == nil {
			return StateActive, nil
		}
		if current.IsCancelled {
			return StateActiveLiquidationReversed, nil
		}
		return StateUnknown, fmt.Errorf("%w: active contract with live liquidation %s", ErrInconsistentState, current.LiquidationNumber)
	case ContractStatusLiquidated:
		if current == nil || current.IsCancelled {
			return StateUnknown, fmt.Errorf("%w: liquidated contract without live liquidation", ErrInconsistentState)
		}
		return StateLiquidated, nil
	case ContractStatusCancelled:
		return StateCancelled, nil
	default:
		return StateUnknown, fmt.Errorf("%w: unknown status %q", ErrInconsistentState, status)
	}
}
