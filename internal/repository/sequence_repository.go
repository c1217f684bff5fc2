package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/model"
)

type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// AllocateNext creates the (series, year) row on first use and increments it in
// one statement, returning the new value. Concurrent callers serialize on the
// row lock; a caller whose transaction rolls back leaves a gap, never a reused
// value. It must run inside the transaction that persists the identifier.
func (r *SequenceRepository) AllocateNext(ctx context.Context, series string, year int) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO yearly_sequence_counters (series_name, year, last_value)
		VALUES (?, ?, 1)
		ON CONFLICT (series_name, year)
		DO UPDATE SET last_value = yearly_sequence_counters.last_value + 1
		RETURNING last_value
	`, series, year).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("allocate %s/%d: %w", series, year, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("allocate %s/%d: counter returned %d", series, year, value)
	}
	return value, nil
}

// Get reads a counter without changing it; a missing row reads as zero.
func (r *SequenceRepository) Get(ctx context.Context, series string, year int) (model.YearlySequenceCounter, error) {
	counter := model.YearlySequenceCounter{SeriesName: series, Year: year}
	var rows []model.YearlySequenceCounter
	err := r.db.WithContext(ctx).Raw(`
		SELECT series_name, year, last_value
		FROM yearly_sequence_counters
		WHERE series_name = ? AND year = ?
	`, series, year).Scan(&rows).Error
	if err != nil {
		return counter, err
	}
	if len(rows) > 0 {
		counter = rows[0]
	}
	return counter, nil
}
