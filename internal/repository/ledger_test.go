package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/model"
	"github.com/nurpe/landuse-contracts/internal/testutil"
)

var base = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func seedContract(t *testing.T, store *Store, number string, status model.ContractStatus, createdAt time.Time) model.Contract {
	t.Helper()
	c := model.Contract{
		ID:             uuid.Must(uuid.NewV7()),
		ContractNumber: number,
		Ward:           "Phường Long Khánh",
		OwnerName:      "Owner " + number,
		SheetNumber:    "10",
		PlotNumber:     "P-" + number,
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	if status == model.ContractStatusCancelled {
		reason := "seeded"
		c.CancellationReason = &reason
	}
	require.NoError(t, store.Contracts.Create(context.Background(), c))
	return c
}

func TestLedgerCurrentFor(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.SQLite(t))
	c := seedContract(t, store, "01/25.HĐ.LK", model.ContractStatusActive, base)

	current, err := store.Liquidations.CurrentFor(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	older := model.LiquidationRecord{
		ID:                uuid.Must(uuid.NewV7()),
		ContractID:        c.ID,
		LiquidationNumber: "01/25.TL.LK",
		LiquidationDate:   base.Add(time.Hour),
		CreatedAt:         base.Add(time.Hour),
	}
	require.NoError(t, store.Liquidations.Append(ctx, older))

	marked, err := store.Liquidations.MarkCancelled(ctx, older.ID, "clerical error")
	require.NoError(t, err)
	assert.True(t, marked)

	again, err := store.Liquidations.MarkCancelled(ctx, older.ID, "twice")
	require.NoError(t, err)
	assert.False(t, again, "a cancelled record cannot be cancelled again")

	current, err = store.Liquidations.CurrentFor(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, older.ID, current.ID, "a cancelled record stays current")
	assert.True(t, current.IsCancelled)
	require.NotNil(t, current.CancellationReason)
	assert.Equal(t, "clerical error", *current.CancellationReason)

	newer := model.LiquidationRecord{
		ID:                uuid.Must(uuid.NewV7()),
		ContractID:        c.ID,
		LiquidationNumber: "02/25.TL.LK",
		LiquidationDate:   base.Add(2 * time.Hour),
		CreatedAt:         base.Add(2 * time.Hour),
	}
	require.NoError(t, store.Liquidations.Append(ctx, newer))

	current, err = store.Liquidations.CurrentFor(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "02/25.TL.LK", current.LiquidationNumber)
	assert.False(t, current.IsCancelled)
	assert.True(t, current.LiquidationDate.Equal(newer.LiquidationDate))

	all, err := store.Liquidations.ListFor(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "02/25.TL.LK", all[0].LiquidationNumber)
	assert.Equal(t, "01/25.TL.LK", all[1].LiquidationNumber)
}

func TestLedgerRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.SQLite(t))
	a := seedContract(t, store, "01/25.HĐ.LK", model.ContractStatusActive, base)
	b := seedContract(t, store, "02/25.HĐ.LK", model.ContractStatusActive, base.Add(time.Minute))

	rec := model.LiquidationRecord{
		ID:                uuid.Must(uuid.NewV7()),
		ContractID:        a.ID,
		LiquidationNumber: "01/25.TL.LK",
		LiquidationDate:   base,
		CreatedAt:         base,
	}
	require.NoError(t, store.Liquidations.Append(ctx, rec))

	rec.ID = uuid.Must(uuid.NewV7())
	rec.ContractID = b.ID
	err := store.Liquidations.Append(ctx, rec)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestContractTransitionStatusIsGuarded(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.SQLite(t))
	c := seedContract(t, store, "01/25.HĐ.LK", model.ContractStatusActive, base)

	ok, err := store.Contracts.TransitionStatus(ctx, c.ID, model.ContractStatusActive, model.ContractStatusLiquidated, nil, base.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Contracts.TransitionStatus(ctx, c.ID, model.ContractStatusActive, model.ContractStatusLiquidated, nil, base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "second writer from the same state loses")

	got, err := store.Contracts.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusLiquidated, got.Status)
	assert.Equal(t, c.ContractNumber, got.ContractNumber)
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt))
}

func TestContractReasonCoupledToStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.SQLite(t))
	c := seedContract(t, store, "01/25.HĐ.LK", model.ContractStatusActive, base)

	_, err := store.Contracts.TransitionStatus(ctx, c.ID, model.ContractStatusActive, model.ContractStatusCancelled, nil, base)
	assert.Error(t, err, "a cancelled contract needs a reason")
}

func TestContractGetByIDNotFound(t *testing.T) {
	store := NewStore(testutil.SQLite(t))
	_, err := store.Contracts.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testutil.SQLite(t))
	c := seedContract(t, store, "01/25.HĐ.LK", model.ContractStatusActive, base)

	actions := []model.HistoryAction{
		model.HistoryActionCreated,
		model.HistoryActionLiquidated,
		model.HistoryActionLiquidationCancelled,
	}
	for i, action := range actions {
		require.NoError(t, store.History.Append(ctx, model.HistoryEntry{
			ID:         uuid.Must(uuid.NewV7()),
			ContractID: c.ID,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Action:     action,
		}))
	}

	entries, err := store.History.ListByContract(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.HistoryActionLiquidationCancelled, entries[0].Action)
	assert.Equal(t, model.HistoryActionLiquidated, entries[1].Action)
	assert.Equal(t, model.HistoryActionCreated, entries[2].Action)
}
