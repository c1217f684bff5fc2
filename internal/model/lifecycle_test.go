package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDeriveState(t *testing.T) {
	live := &LiquidationRecord{LiquidationNumber: "01/25.TL.LK"}
	reversed := &LiquidationRecord{LiquidationNumber: "01/25.TL.LK", IsCancelled: true, CancellationReason: strPtr("typo")}

	tests := []struct {
		name    string
		status  ContractStatus
		current *LiquidationRecord
		want    LifecycleState
		wantErr bool
	}{
		{"fresh contract", ContractStatusActive, nil, StateActive, false},
		{"active after reversal", ContractStatusActive, reversed, StateActiveLiquidationReversed, false},
		{"liquidated", ContractStatusLiquidated, live, StateLiquidated, false},
		{"cancelled", ContractStatusCancelled, nil, StateCancelled, false},
		{"cancelled after reversal", ContractStatusCancelled, reversed, StateCancelled, false},
		{"active with live record", ContractStatusActive, live, StateUnknown, true},
		{"liquidated without record", ContractStatusLiquidated, nil, StateUnknown, true},
		{"liquidated with reversed record", ContractStatusLiquidated, reversed, StateUnknown, true},
		{"unknown status", ContractStatus("DRAFT"), nil, StateUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveState(tt.status, tt.current)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInconsistentState)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status, got.Status())
		})
	}
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		from LifecycleState
		op   Operation
		to   LifecycleState
		ok   bool
	}{
		{StateActive, OperationLiquidate, StateLiquidated, true},
		{StateActiveLiquidationReversed, OperationLiquidate, StateLiquidated, true},
		{StateLiquidated, OperationLiquidate, StateLiquidated, false},
		{StateCancelled, OperationLiquidate, StateCancelled, false},

		{StateLiquidated, OperationCancelLiquidation, StateActiveLiquidationReversed, true},
		{StateActive, OperationCancelLiquidation, StateActive, false},
		{StateActiveLiquidationReversed, OperationCancelLiquidation, StateActiveLiquidationReversed, false},
		{StateCancelled, OperationCancelLiquidation, StateCancelled, false},

		{StateActive, OperationCancelContract, StateCancelled, true},
		{StateActiveLiquidationReversed, OperationCancelContract, StateCancelled, true},
		{StateLiquidated, OperationCancelContract, StateLiquidated, false},
		{StateCancelled, OperationCancelContract, StateCancelled, false},

		{StateActive, OperationEditDetails, StateActive, true},
		{StateActiveLiquidationReversed, OperationEditDetails, StateActiveLiquidationReversed, true},
		{StateLiquidated, OperationEditDetails, StateLiquidated, true},
		{StateCancelled, OperationEditDetails, StateCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+string(tt.op), func(t *testing.T) {
			got, ok := tt.from.Next(tt.op)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestStateFlags(t *testing.T) {
	assert.True(t, StateActiveLiquidationReversed.IsLiquidationCancelled())
	assert.False(t, StateActive.IsLiquidationCancelled())
	assert.False(t, StateLiquidated.IsLiquidationCancelled())
	assert.Equal(t, ContractStatusActive, StateActiveLiquidationReversed.Status())
}
