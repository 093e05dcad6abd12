package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
	"github.com/langchou/carrental/internal/state"
)

// RentalService 租赁引擎
type RentalService struct {
	base
	pricing Pricing
}

// NewRentalService 创建租赁服务
func NewRentalService(store repository.Store, logger *zap.Logger, pricing Pricing) *RentalService {
	return &RentalService{
		base:    newBase(store, logger),
		pricing: pricing,
	}
}

// ReturnResult 归还结果
type ReturnResult struct {
	Rental     *models.Rental
	Car        *models.Car
	Settlement Settlement
}

// CheckRentalConflict 车辆可租时返回 nil
func (s *RentalService) CheckRentalConflict(ctx context.Context, carID string) error {
	const op = "check rental conflict"

	cars, err := s.store.LoadCars(ctx)
	if err != nil {
		return s.persistence(op, err)
	}
	_, err = rentable(op, cars, carID)
	return err
}

func rentable(op string, cars []*models.Car, carID string) (*models.Car, error) {
	car := findCar(cars, carID)
	switch {
	case car == nil:
		return nil, apperr.NotFound(op, "Car not found")
	case car.Status == models.CarRented:
		return nil, apperr.InvalidState(op, "Car is already rented")
	case car.Status == models.CarUnderMaintenance:
		return nil, apperr.InvalidState(op, "Car is under maintenance")
	}
	return car, nil
}

// ListAvailableCars 列出可租车辆，空字符串或 ALL 表示不过滤
func (s *RentalService) ListAvailableCars(ctx context.Context, category, fuel string) ([]*models.Car, error) {
	const op = "list available cars"

	var (
		wantCategory models.Category
		wantFuel     models.FuelType
		err          error
	)
	if !isAll(category) {
		if wantCategory, err = models.ParseCategory(category); err != nil {
			return nil, apperr.Validation(op, fmt.Sprintf("Unknown category %q", category))
		}
	}
	if !isAll(fuel) {
		if wantFuel, err = models.ParseFuelType(fuel); err != nil {
			return nil, apperr.Validation(op, fmt.Sprintf("Unknown fuel type %q", fuel))
		}
	}

	cars, err := s.store.LoadCars(ctx)
	if err != nil {
		return nil, s.persistence(op, err)
	}

	var available []*models.Car
	for _, c := range cars {
		if c.Status != models.CarAvailable {
			continue
		}
		if wantCategory != "" && c.Category != wantCategory {
			continue
		}
		if wantFuel != "" && c.FuelType != wantFuel {
			continue
		}
		available = append(available, c)
	}
	return available, nil
}

func isAll(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, "all")
}

// EstimateCost 报价；车辆不存在时返回零值报价
func (s *RentalService) EstimateCost(ctx context.Context, carID string, hours int) (Quote, error) {
	const op = "estimate cost"

	if hours <= 0 {
		return Quote{}, apperr.Validation(op, "Rental hours must be positive")
	}
	cars, err := s.store.LoadCars(ctx)
	if err != nil {
		return Quote{}, s.persistence(op, err)
	}
	car := findCar(cars, carID)
	if car == nil {
		return Quote{}, nil
	}
	return Estimate(car.HourlyRate, hours, s.pricing.Deposit), nil
}

// ConfirmBooking 下单：生成租赁记录并把车辆置为已租
func (s *RentalService) ConfirmBooking(ctx context.Context, customerID, carID, driverName string, hours int) (*models.Rental, error) {
	const op = "confirm booking"

	if hours <= 0 {
		return nil, apperr.Validation(op, "Rental hours must be positive")
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, apperr.Validation(op, "Customer ID is required")
	}

	var rental *models.Rental
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}
		rentals, err := tx.LoadRentals(ctx)
		if err != nil {
			return err
		}

		car, err := rentable(op, cars, carID)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(rentals))
		for _, r := range rentals {
			ids = append(ids, r.ID)
		}
		now := s.now()
		rental = models.NewRental(nextID("R", 4, ids), customerID, car.ID, driverName, hours, car.HourlyRate, now)

		if err := s.transition(ctx, op, car, state.EventRent); err != nil {
			return err
		}
		car.AttachRental(customerID, now, hours)

		if err := tx.SaveCars(ctx, cars); err != nil {
			return err
		}
		return tx.SaveRentals(ctx, append(rentals, rental))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking confirmed",
		zap.String("rental_id", rental.ID),
		zap.String("car_id", rental.CarID),
		zap.String("customer_id", rental.CustomerID),
		zap.Int("hours", rental.EstimatedHours),
	)
	return rental, nil
}

// ProcessReturn 归还车辆并结算
func (s *RentalService) ProcessReturn(ctx context.Context, carID string, actualHours int) (*ReturnResult, error) {
	const op = "process return"

	if actualHours < 0 {
		return nil, apperr.Validation(op, "Actual hours cannot be negative")
	}

	var result *ReturnResult
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}
		rentals, err := tx.LoadRentals(ctx)
		if err != nil {
			return err
		}

		car := findCar(cars, carID)
		if car == nil {
			return apperr.NotFound(op, "Car not found")
		}
		if car.Status != models.CarRented {
			return apperr.InvalidState(op, "Car is not currently rented")
		}

		var rental *models.Rental
		for _, r := range rentals {
			if r.CarID == carID && r.IsActive() {
				rental = r
				break
			}
		}
		if rental == nil {
			return apperr.NotFound(op, "No active rental found for this car")
		}

		settlement := Settle(car.HourlyRate, rental.EstimatedHours, actualHours, s.pricing.EarlyReturnDiscount)
		rental.Complete(actualHours, settlement.FinalCost, s.now())

		if err := s.transition(ctx, op, car, state.EventReturn); err != nil {
			return err
		}
		car.ClearRental()

		if err := tx.SaveCars(ctx, cars); err != nil {
			return err
		}
		if err := tx.SaveRentals(ctx, rentals); err != nil {
			return err
		}
		result = &ReturnResult{Rental: rental, Car: car, Settlement: settlement}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Car returned",
		zap.String("rental_id", result.Rental.ID),
		zap.String("car_id", carID),
		zap.String("outcome", string(result.Settlement.Outcome)),
		zap.String("final_cost", result.Settlement.FinalCost.StringFixed(2)),
	)
	return result, nil
}

// IsDriverNameTaken 该客户是否已用过同名司机，空名不算
func (s *RentalService) IsDriverNameTaken(ctx context.Context, customerID, driverName string) (bool, error) {
	if driverName == "" {
		return false, nil
	}
	rentals, err := s.CustomerRentals(ctx, customerID)
	if err != nil {
		return false, err
	}
	for _, r := range rentals {
		if r.DriverName == driverName {
			return true, nil
		}
	}
	return false, nil
}

// CustomerActiveRentals 客户进行中的租赁
func (s *RentalService) CustomerActiveRentals(ctx context.Context, customerID string) ([]*models.Rental, error) {
	rentals, err := s.CustomerRentals(ctx, customerID)
	if err != nil {
		return nil, err
	}
	active := rentals[:0]
	for _, r := range rentals {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	return active, nil
}

// CustomerRentals 客户的全部租赁
func (s *RentalService) CustomerRentals(ctx context.Context, customerID string) ([]*models.Rental, error) {
	rentals, err := s.store.LoadRentals(ctx)
	if err != nil {
		return nil, s.persistence("list customer rentals", err)
	}
	var out []*models.Rental
	for _, r := range rentals {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetCar 按 ID 获取车辆
func (s *RentalService) GetCar(ctx context.Context, carID string) (*models.Car, error) {
	const op = "get car"

	cars, err := s.store.LoadCars(ctx)
	if err != nil {
		return nil, s.persistence(op, err)
	}
	car := findCar(cars, carID)
	if car == nil {
		return nil, apperr.NotFound(op, "Car not found")
	}
	return car, nil
}

// ListCars 全部车辆
func (s *RentalService) ListCars(ctx context.Context) ([]*models.Car, error) {
	cars, err := s.store.LoadCars(ctx)
	if err != nil {
		return nil, s.persistence("list cars", err)
	}
	return cars, nil
}

// IssueReceipt 生成并保存下单收据
func (s *RentalService) IssueReceipt(ctx context.Context, rental *models.Rental, car *models.Car) (string, error) {
	quote := Estimate(car.HourlyRate, rental.EstimatedHours, s.pricing.Deposit)
	id := uuid.New().String()
	content := renderReceipt(id, rental, car, quote)

	doc := repository.Document{
		ID:        id,
		Kind:      repository.DocumentReceipt,
		OwnerID:   rental.CustomerID,
		CreatedAt: s.now(),
		Content:   content,
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return "", s.persistence("issue receipt", err)
	}
	return content, nil
}

func renderReceipt(id string, rental *models.Rental, car *models.Car, quote Quote) string {
	var b strings.Builder
	b.WriteString("========== RENTAL RECEIPT ==========\n")
	fmt.Fprintf(&b, "Receipt No:     %s\n", id)
	fmt.Fprintf(&b, "Rental ID:      %s\n", rental.ID)
	fmt.Fprintf(&b, "Customer ID:    %s\n", rental.CustomerID)
	if rental.DriverName != "" {
		fmt.Fprintf(&b, "Driver:         %s\n", rental.DriverName)
	}
	fmt.Fprintf(&b, "Car:            %s %s (%s, %s)\n", car.ID, car.Model, car.Category, car.FuelType)
	fmt.Fprintf(&b, "Start:          %s\n", rental.StartTime.Format(time.DateTime))
	fmt.Fprintf(&b, "Hours:          %d\n", rental.EstimatedHours)
	fmt.Fprintf(&b, "Hourly rate:    $%s\n", car.HourlyRate.StringFixed(2))
	fmt.Fprintf(&b, "Base price:     $%s\n", quote.BasePrice.StringFixed(2))
	fmt.Fprintf(&b, "Deposit:        $%s\n", quote.Deposit.StringFixed(2))
	fmt.Fprintf(&b, "Total:          $%s\n", quote.Total.StringFixed(2))
	b.WriteString("====================================\n")
	return b.String()
}
