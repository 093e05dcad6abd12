package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
)

// LoadCars 获取所有车辆
func (s *PGStore) LoadCars(ctx context.Context) ([]*models.Car, error) {
	query := `
		SELECT id, model, category, fuel_type, hourly_rate::text, status,
			COALESCE(renter_id, ''), rental_start, estimated_hours
		FROM cars ORDER BY position
	`
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		var (
			id, model, category, fuel, rate, status, renter string
			start                                           *time.Time
			hours                                           int
		)
		if err := rows.Scan(&id, &model, &category, &fuel, &rate, &status, &renter, &start, &hours); err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}

		car, err := decodeCar(id, model, category, fuel, rate, status, renter, localWall(start), hours)
		if err != nil {
			s.logger.Warn("Skipping invalid car row", zap.String("car_id", id), zap.Error(err))
			continue
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}

	return cars, nil
}

func decodeCar(id, model, category, fuel, rate, status, renter string, start time.Time, hours int) (*models.Car, error) {
	cat, err := models.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	ft, err := models.ParseFuelType(fuel)
	if err != nil {
		return nil, err
	}
	st, err := models.ParseCarStatus(status)
	if err != nil {
		return nil, err
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse hourly rate: %w", err)
	}

	car := &models.Car{
		ID:         id,
		Model:      model,
		Category:   cat,
		FuelType:   ft,
		HourlyRate: r,
		Status:     st,
	}
	if renter != "" {
		car.AttachRental(renter, start, hours)
	}
	return car, car.Validate()
}

// SaveCars 整体替换车辆表
func (s *PGStore) SaveCars(ctx context.Context, cars []*models.Car) error {
	insert := `
		INSERT INTO cars (id, position, model, category, fuel_type, hourly_rate, status, renter_id, rental_start, estimated_hours)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, NULLIF($8, ''), $9, $10)
	`
	err := s.withTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM cars`); err != nil {
			return fmt.Errorf("clear cars: %w", err)
		}
		for i, car := range cars {
			_, err := q.Exec(ctx, insert,
				car.ID,
				i,
				car.Model,
				string(car.Category),
				string(car.FuelType),
				car.HourlyRate.String(),
				string(car.Status),
				car.RenterID,
				nullableTime(car.RentalStart),
				car.EstimatedHours,
			)
			if err != nil {
				return fmt.Errorf("insert car %s: %w", car.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cars: %w", err)
	}
	return nil
}
