package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
)

// LoadRentals 获取所有租赁记录
func (s *PGStore) LoadRentals(ctx context.Context) ([]*models.Rental, error) {
	query := `
		SELECT id, customer_id, car_id, driver_name, start_time, end_time,
			estimated_hours, actual_hours, total_cost::text, status
		FROM rentals ORDER BY position
	`
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	defer rows.Close()

	var rentals []*models.Rental
	for rows.Next() {
		r := &models.Rental{}
		var (
			start, end   *time.Time
			cost, status string
		)
		err := rows.Scan(
			&r.ID,
			&r.CustomerID,
			&r.CarID,
			&r.DriverName,
			&start,
			&end,
			&r.EstimatedHours,
			&r.ActualHours,
			&cost,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rental: %w", err)
		}

		r.StartTime = localWall(start)
		r.EndTime = localWall(end)
		if r.TotalCost, err = decimal.NewFromString(cost); err != nil {
			s.logger.Warn("Skipping invalid rental row", zap.String("rental_id", r.ID), zap.Error(err))
			continue
		}
		if r.Status, err = models.ParseRentalStatus(status); err != nil {
			s.logger.Warn("Skipping invalid rental row", zap.String("rental_id", r.ID), zap.Error(err))
			continue
		}
		rentals = append(rentals, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rentals: %w", err)
	}

	return rentals, nil
}

// SaveRentals 整体替换租赁表
func (s *PGStore) SaveRentals(ctx context.Context, rentals []*models.Rental) error {
	insert := `
		INSERT INTO rentals (id, position, customer_id, car_id, driver_name, start_time, end_time,
			estimated_hours, actual_hours, total_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::text::numeric, $11)
	`
	err := s.withTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM rentals`); err != nil {
			return fmt.Errorf("clear rentals: %w", err)
		}
		for i, r := range rentals {
			_, err := q.Exec(ctx, insert,
				r.ID,
				i,
				r.CustomerID,
				r.CarID,
				r.DriverName,
				r.StartTime,
				nullableTime(r.EndTime),
				r.EstimatedHours,
				r.ActualHours,
				r.TotalCost.String(),
				string(r.Status),
			)
			if err != nil {
				return fmt.Errorf("insert rental %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save rentals: %w", err)
	}
	return nil
}
