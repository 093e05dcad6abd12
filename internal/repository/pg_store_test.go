package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
)

// 需要设置 TEST_DATABASE_URL 指向一个可清空的数据库
func newTestPGStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	for _, table := range []string{"cars", "rentals", "maintenance", "customers", "agents", "documents"} {
		_, err := db.Pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	return NewPGStore(db, zap.NewNop())
}

func TestPGStoreRoundTrip(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()
	start := time.Date(2024, 2, 3, 11, 0, 0, 0, time.Local)

	rented := models.NewCar("C002", "Tesla Model 3", models.CategorySedan, models.FuelEV, decimal.RequireFromString("65.50"))
	rented.Status = models.CarRented
	rented.AttachRental("C001", start, 2)
	require.NoError(t, s.SaveCars(ctx, []*models.Car{
		models.NewCar("C010", "Nissan Altima", models.CategorySedan, models.FuelStandardEngine, decimal.NewFromInt(48)),
		rented,
	}))

	cars, err := s.LoadCars(ctx)
	require.NoError(t, err)
	require.Len(t, cars, 2)
	assert.Equal(t, "C010", cars[0].ID)
	assert.True(t, cars[1].HourlyRate.Equal(decimal.RequireFromString("65.5")))
	assert.Equal(t, "C001", cars[1].RenterID)
	assert.True(t, cars[1].RentalStart.Equal(start))
	assert.Empty(t, cars[0].RenterID)

	r := models.NewRental("R0001", "C001", "C002", "Ann", 2, rented.HourlyRate, start)
	require.NoError(t, s.SaveRentals(ctx, []*models.Rental{r}))
	rentals, err := s.LoadRentals(ctx)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.True(t, rentals[0].EndTime.IsZero())
	assert.True(t, rentals[0].TotalCost.Equal(decimal.NewFromInt(131)))

	require.NoError(t, s.SaveCustomers(ctx, []*models.Customer{models.NewCustomer("C001", "John Doe", "customer123")}))
	customers, err := s.LoadCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)

	require.NoError(t, s.SaveDocument(ctx, Document{
		ID: uuid.New().String(), Kind: DocumentReceipt, OwnerID: "C001", CreatedAt: start, Content: "receipt",
	}))
}

func TestPGStoreAtomicRollsBack(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()
	car := models.NewCar("C001", "Toyota RAV4", models.CategorySUV, models.FuelDualMotor, decimal.NewFromInt(80))
	require.NoError(t, s.SaveCars(ctx, []*models.Car{car}))

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx Store) error {
		car.Status = models.CarUnderMaintenance
		if err := tx.SaveCars(ctx, []*models.Car{car}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	cars, err := s.LoadCars(ctx)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, models.CarAvailable, cars[0].Status)
}

func TestPGStoreKeepsRatePrecision(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()

	rate := decimal.RequireFromString("12.345")
	require.NoError(t, s.SaveCars(ctx, []*models.Car{
		models.NewCar("C001", "Honda Civic", models.CategorySedan, models.FuelEV, rate),
	}))

	cars, err := s.LoadCars(ctx)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.True(t, cars[0].HourlyRate.Equal(rate), cars[0].HourlyRate.String())
}
