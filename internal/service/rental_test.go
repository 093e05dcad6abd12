package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
)

func newRentalService(store repository.Store) *RentalService {
	s := NewRentalService(store, zap.NewNop(), DefaultPricing())
	s.SetClock(fixedClock)
	return s
}

func TestRentAndReturnEarly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store, car("C100", 80, models.CategorySUV, models.FuelEV))
	svc := newRentalService(store)

	quote, err := svc.EstimateCost(ctx, "C100", 3)
	require.NoError(t, err)
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(290)))

	rental, err := svc.ConfirmBooking(ctx, "C001", "C100", "Alice", 3)
	require.NoError(t, err)
	assert.Equal(t, "R0001", rental.ID)
	assert.Equal(t, models.RentalActive, rental.Status)
	assert.True(t, rental.TotalCost.Equal(decimal.NewFromInt(240)))

	c := loadCar(t, store, "C100")
	assert.Equal(t, models.CarRented, c.Status)
	assert.Equal(t, "C001", c.RenterID)
	assert.Equal(t, 3, c.EstimatedHours)
	assert.True(t, c.RentalStart.Equal(testNow))

	result, err := svc.ProcessReturn(ctx, "C100", 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEarly, result.Settlement.Outcome)
	assert.True(t, result.Settlement.FinalCost.Equal(decimal.NewFromInt(224)))
	assert.True(t, result.Settlement.Discount.Equal(decimal.NewFromInt(16)))

	c = loadCar(t, store, "C100")
	assert.Equal(t, models.CarAvailable, c.Status)
	assert.Empty(t, c.RenterID)
	assert.Zero(t, c.EstimatedHours)

	rentals, err := store.LoadRentals(ctx)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, models.RentalCompleted, rentals[0].Status)
	assert.Equal(t, 2, rentals[0].ActualHours)
	assert.True(t, rentals[0].TotalCost.Equal(decimal.NewFromInt(224)))
	assert.True(t, rentals[0].EndTime.Equal(testNow))
}

func TestReturnLate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store, car("C001", 50, models.CategorySedan, models.FuelStandardEngine))
	svc := newRentalService(store)

	_, err := svc.ConfirmBooking(ctx, "C001", "C001", "", 5)
	require.NoError(t, err)

	result, err := svc.ProcessReturn(ctx, "C001", 8)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLate, result.Settlement.Outcome)
	assert.True(t, result.Settlement.FinalCost.Equal(decimal.NewFromInt(400)))
	assert.True(t, result.Settlement.ExtraCharge.Equal(decimal.NewFromInt(150)))
}

func TestCheckRentalConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	busy := car("C002", 60, models.CategorySUV, models.FuelEV)
	busy.Status = models.CarUnderMaintenance
	seedCars(t, store, car("C001", 50, models.CategorySedan, models.FuelEV), busy)
	svc := newRentalService(store)

	assert.NoError(t, svc.CheckRentalConflict(ctx, "C001"))

	err := svc.CheckRentalConflict(ctx, "C002")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.Equal(t, "Car is under maintenance", apperr.MessageOf(err))

	err = svc.CheckRentalConflict(ctx, "C999")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.ConfirmBooking(ctx, "C001", "C001", "", 2)
	require.NoError(t, err)
	err = svc.CheckRentalConflict(ctx, "C001")
	assert.Equal(t, "Car is already rented", apperr.MessageOf(err))

	// 第二次下单失败且不产生新记录
	_, err = svc.ConfirmBooking(ctx, "C005", "C001", "", 2)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	rentals, err := store.LoadRentals(ctx)
	require.NoError(t, err)
	assert.Len(t, rentals, 1)
}

func TestConfirmBookingValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store, car("C001", 50, models.CategorySedan, models.FuelEV))
	svc := newRentalService(store)

	_, err := svc.ConfirmBooking(ctx, "C001", "C001", "", 0)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = svc.ConfirmBooking(ctx, " ", "C001", "", 2)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	assert.Equal(t, models.CarAvailable, loadCar(t, store, "C001").Status)
}

func TestRentalIDsIncrease(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store,
		car("C001", 50, models.CategorySedan, models.FuelEV),
		car("C002", 50, models.CategorySedan, models.FuelEV),
	)
	svc := newRentalService(store)

	r1, err := svc.ConfirmBooking(ctx, "C001", "C001", "", 1)
	require.NoError(t, err)
	_, err = svc.ProcessReturn(ctx, "C001", 1)
	require.NoError(t, err)
	r2, err := svc.ConfirmBooking(ctx, "C001", "C002", "", 1)
	require.NoError(t, err)

	assert.Equal(t, "R0001", r1.ID)
	assert.Equal(t, "R0002", r2.ID)
}

func TestProcessReturnErrors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store, car("C001", 50, models.CategorySedan, models.FuelEV))
	svc := newRentalService(store)

	_, err := svc.ProcessReturn(ctx, "C001", 2)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	_, err = svc.ProcessReturn(ctx, "C404", 2)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.ProcessReturn(ctx, "C001", -1)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestProcessReturnWithoutActiveRental(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	orphan := car("C001", 50, models.CategorySedan, models.FuelEV)
	orphan.Status = models.CarRented
	orphan.AttachRental("C001", testNow, 3)
	seedCars(t, store, orphan)
	svc := newRentalService(store)

	_, err := svc.ProcessReturn(ctx, "C001", 2)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "No active rental found for this car", apperr.MessageOf(err))

	// 车辆保持已租状态
	c := loadCar(t, store, "C001")
	assert.Equal(t, models.CarRented, c.Status)
	assert.Equal(t, "C001", c.RenterID)
}

func TestEstimateCostMissingCar(t *testing.T) {
	svc := newRentalService(newTestStore(t))

	quote, err := svc.EstimateCost(context.Background(), "NOPE", 4)
	require.NoError(t, err)
	assert.True(t, quote.Total.IsZero())
	assert.True(t, quote.BasePrice.IsZero())

	_, err = svc.EstimateCost(context.Background(), "NOPE", 0)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListAvailableCars(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rented := car("C004", 90, models.CategoryVan, models.FuelEV)
	seedCars(t, store,
		car("C001", 80, models.CategorySUV, models.FuelDualMotor),
		car("C002", 45, models.CategorySedan, models.FuelEV),
		car("C003", 120, models.CategorySUV, models.FuelEV),
		rented,
	)
	svc := newRentalService(store)
	_, err := svc.ConfirmBooking(ctx, "C001", "C004", "", 2)
	require.NoError(t, err)

	all, err := svc.ListAvailableCars(ctx, "", "ALL")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	suvs, err := svc.ListAvailableCars(ctx, "suv", "all")
	require.NoError(t, err)
	assert.Len(t, suvs, 2)

	evSUV, err := svc.ListAvailableCars(ctx, "SUV", "EV")
	require.NoError(t, err)
	require.Len(t, evSUV, 1)
	assert.Equal(t, "C003", evSUV[0].ID)

	vans, err := svc.ListAvailableCars(ctx, "Van", "")
	require.NoError(t, err)
	assert.Empty(t, vans)

	_, err = svc.ListAvailableCars(ctx, "Truck", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestDriverNameAndCustomerRentals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store,
		car("C001", 50, models.CategorySedan, models.FuelEV),
		car("C002", 50, models.CategorySedan, models.FuelEV),
	)
	svc := newRentalService(store)

	_, err := svc.ConfirmBooking(ctx, "C001", "C001", "Alice", 2)
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(ctx, "C002", "C002", "Bob", 2)
	require.NoError(t, err)

	taken, err := svc.IsDriverNameTaken(ctx, "C001", "Alice")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = svc.IsDriverNameTaken(ctx, "C001", "alice")
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = svc.IsDriverNameTaken(ctx, "C002", "Alice")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = svc.ProcessReturn(ctx, "C001", 2)
	require.NoError(t, err)

	all, err := svc.CustomerRentals(ctx, "C001")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	active, err := svc.CustomerActiveRentals(ctx, "C001")
	require.NoError(t, err)
	assert.Empty(t, active)

	active, err = svc.CustomerActiveRentals(ctx, "C002")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestIssueReceipt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store, car("C100", 80, models.CategorySUV, models.FuelEV))
	svc := newRentalService(store)

	rental, err := svc.ConfirmBooking(ctx, "C001", "C100", "Alice", 3)
	require.NoError(t, err)
	c, err := svc.GetCar(ctx, "C100")
	require.NoError(t, err)

	content, err := svc.IssueReceipt(ctx, rental, c)
	require.NoError(t, err)
	assert.Contains(t, content, "Total:          $290.00")
	assert.Contains(t, content, "Driver:         Alice")

	paths, err := filepath.Glob(filepath.Join(store.Root(), "Customers", "C001", "Receipt_20240401_100000_*.txt"))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestConfirmBookingRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store, car("C001", 50, models.CategorySedan, models.FuelEV))
	svc := newRentalService(&flakyStore{Store: store, failSaveRentals: true})

	_, err := svc.ConfirmBooking(ctx, "C001", "C001", "", 2)
	assert.True(t, apperr.IsKind(err, apperr.KindPersistence))
	assert.ErrorIs(t, err, errDisk)

	// 车辆状态回滚
	assert.Equal(t, models.CarAvailable, loadCar(t, store, "C001").Status)
}

func TestReadFailureIsPersistence(t *testing.T) {
	svc := newRentalService(&flakyStore{Store: newTestStore(t), failLoadCars: true})

	_, err := svc.ListCars(context.Background())
	assert.True(t, apperr.IsKind(err, apperr.KindPersistence))

	_, err = svc.GetCar(context.Background(), "C001")
	assert.True(t, apperr.IsKind(err, apperr.KindPersistence))
}
