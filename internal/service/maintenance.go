package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
	"github.com/langchou/carrental/internal/state"
)

// MaintenanceService 维修引擎
type MaintenanceService struct {
	base
}

// NewMaintenanceService 创建维修服务
func NewMaintenanceService(store repository.Store, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{base: newBase(store, logger)}
}

// AddMaintenance 登记维修，车辆进入维修状态
func (s *MaintenanceService) AddMaintenance(ctx context.Context, carID, technician, description string) (*models.Maintenance, error) {
	const op = "add maintenance"

	technician = strings.TrimSpace(technician)
	if technician == "" {
		return nil, apperr.Validation(op, "Technician name is required")
	}

	var record *models.Maintenance
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}
		records, err := tx.LoadMaintenance(ctx)
		if err != nil {
			return err
		}

		car := findCar(cars, carID)
		switch {
		case car == nil:
			return apperr.NotFound(op, "Car not found")
		case car.Status == models.CarRented:
			return apperr.InvalidState(op, "Cannot perform maintenance on rented car")
		case car.Status == models.CarUnderMaintenance:
			return apperr.InvalidState(op, "Car is already under maintenance")
		}

		ids := make([]string, 0, len(records))
		for _, m := range records {
			ids = append(ids, m.ID)
		}
		record = models.NewMaintenance(nextID("M", 4, ids), car.ID, technician, description, s.now())

		if err := s.transition(ctx, op, car, state.EventStartMaintenance); err != nil {
			return err
		}
		if err := tx.SaveCars(ctx, cars); err != nil {
			return err
		}
		return tx.SaveMaintenance(ctx, append(records, record))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Maintenance started",
		zap.String("maintenance_id", record.ID),
		zap.String("car_id", record.CarID),
		zap.String("technician", record.Technician),
	)
	return record, nil
}

// CompleteMaintenance 完成维修，车辆恢复可租
func (s *MaintenanceService) CompleteMaintenance(ctx context.Context, maintenanceID string) (*models.Maintenance, error) {
	const op = "complete maintenance"

	var record *models.Maintenance
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}
		records, err := tx.LoadMaintenance(ctx)
		if err != nil {
			return err
		}

		for _, m := range records {
			if m.ID == maintenanceID && m.InProgress() {
				record = m
				break
			}
		}
		if record == nil {
			return apperr.NotFound(op, "Maintenance record not found or already completed")
		}

		car := findCar(cars, record.CarID)
		if car == nil {
			return apperr.NotFound(op, "Car not found")
		}

		record.Complete()
		if err := s.transition(ctx, op, car, state.EventFinishMaintenance); err != nil {
			return err
		}
		if err := tx.SaveCars(ctx, cars); err != nil {
			return err
		}
		return tx.SaveMaintenance(ctx, records)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Maintenance completed",
		zap.String("maintenance_id", record.ID),
		zap.String("car_id", record.CarID),
	)
	return record, nil
}

// ListInProgress 进行中的维修
func (s *MaintenanceService) ListInProgress(ctx context.Context) ([]*models.Maintenance, error) {
	return s.filter(ctx, "list maintenance in progress", func(m *models.Maintenance) bool {
		return m.InProgress()
	})
}

// HistoryForCar 某辆车的全部维修记录
func (s *MaintenanceService) HistoryForCar(ctx context.Context, carID string) ([]*models.Maintenance, error) {
	return s.filter(ctx, "maintenance history", func(m *models.Maintenance) bool {
		return m.CarID == carID
	})
}

// ListAll 全部维修记录
func (s *MaintenanceService) ListAll(ctx context.Context) ([]*models.Maintenance, error) {
	return s.filter(ctx, "list maintenance", func(*models.Maintenance) bool { return true })
}

func (s *MaintenanceService) filter(ctx context.Context, op string, keep func(*models.Maintenance) bool) ([]*models.Maintenance, error) {
	records, err := s.store.LoadMaintenance(ctx)
	if err != nil {
		return nil, s.persistence(op, err)
	}
	var out []*models.Maintenance
	for _, m := range records {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
