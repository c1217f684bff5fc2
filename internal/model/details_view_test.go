package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDetailsView(t *testing.T) {
	base := Contract{
		ID:             uuid.New(),
		ContractNumber: "01/25.HĐ.LK",
		Ward:           "Phường Long Khánh",
		OwnerName:      "Nguyễn Văn A",
		SheetNumber:    "12",
		PlotNumber:     "345",
		CreatedAt:      time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	liqDate := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	t.Run("never liquidated", func(t *testing.T) {
		c := base
		c.Status = ContractStatusActive

		view, err := ResolveDetailsView(c, nil)
		require.NoError(t, err)
		assert.Equal(t, StateActive, view.State)
		assert.Nil(t, view.LiquidationNumber)
		assert.Nil(t, view.LiquidationDate)
		assert.False(t, view.IsLiquidationCancelled)
		assert.Nil(t, view.CancellationReason)
	})

	t.Run("current record live", func(t *testing.T) {
		c := base
		c.Status = ContractStatusLiquidated
		current := &LiquidationRecord{LiquidationNumber: "02/25.TL.LK", LiquidationDate: liqDate}

		view, err := ResolveDetailsView(c, current)
		require.NoError(t, err)
		assert.Equal(t, StateLiquidated, view.State)
		require.NotNil(t, view.LiquidationNumber)
		assert.Equal(t, "02/25.TL.LK", *view.LiquidationNumber)
		assert.Equal(t, liqDate, *view.LiquidationDate)
		assert.Nil(t, view.CancellationReason)
	})

	t.Run("current record reversed", func(t *testing.T) {
		c := base
		c.Status = ContractStatusActive
		current := &LiquidationRecord{
			LiquidationNumber:  "01/25.TL.LK",
			LiquidationDate:    liqDate,
			IsCancelled:        true,
			CancellationReason: strPtr("clerical error"),
		}

		view, err := ResolveDetailsView(c, current)
		require.NoError(t, err)
		assert.Equal(t, StateActiveLiquidationReversed, view.State)
		assert.True(t, view.IsLiquidationCancelled)
		require.NotNil(t, view.CancellationReason)
		assert.Equal(t, "clerical error", *view.CancellationReason)
	})

	t.Run("contract reason wins when cancelled", func(t *testing.T) {
		c := base
		c.Status = ContractStatusCancelled
		c.CancellationReason = strPtr("owner withdrew")
		current := &LiquidationRecord{
			LiquidationNumber:  "01/25.TL.LK",
			IsCancelled:        true,
			CancellationReason: strPtr("clerical error"),
		}

		view, err := ResolveDetailsView(c, current)
		require.NoError(t, err)
		assert.Equal(t, StateCancelled, view.State)
		require.NotNil(t, view.CancellationReason)
		assert.Equal(t, "owner withdrew", *view.CancellationReason)
		assert.True(t, view.IsLiquidationCancelled)
	})

	t.Run("inconsistent rows are reported", func(t *testing.T) {
		c := base
		c.Status = ContractStatusLiquidated

		_, err := ResolveDetailsView(c, nil)
		assert.ErrorIs(t, err, ErrInconsistentState)
	})
}
