package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
)

var testNow = time.Date(2024, 4, 1, 10, 0, 0, 0, time.Local)

func fixedClock() time.Time { return testNow }

func newTestStore(t *testing.T) *repository.FileStore {
	t.Helper()
	s, err := repository.NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func seedCars(t *testing.T, store repository.Store, cars ...*models.Car) {
	t.Helper()
	require.NoError(t, store.SaveCars(context.Background(), cars))
}

func car(id string, rate int64, cat models.Category, fuel models.FuelType) *models.Car {
	return models.NewCar(id, "Model "+id, cat, fuel, decimal.NewFromInt(rate))
}

func loadCar(t *testing.T, store repository.Store, id string) *models.Car {
	t.Helper()
	cars, err := store.LoadCars(context.Background())
	require.NoError(t, err)
	c := findCar(cars, id)
	require.NotNil(t, c, "car %s", id)
	return c
}

var errDisk = errors.New("disk unavailable")

// flakyStore 按开关注入存储错误
type flakyStore struct {
	repository.Store
	failLoadCars    bool
	failSaveRentals bool
}

func (f *flakyStore) LoadCars(ctx context.Context) ([]*models.Car, error) {
	if f.failLoadCars {
		return nil, errDisk
	}
	return f.Store.LoadCars(ctx)
}

func (f *flakyStore) SaveRentals(ctx context.Context, rentals []*models.Rental) error {
	if f.failSaveRentals {
		return errDisk
	}
	return f.Store.SaveRentals(ctx, rentals)
}

func (f *flakyStore) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	return f.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(&flakyStore{Store: tx, failLoadCars: f.failLoadCars, failSaveRentals: f.failSaveRentals})
	})
}

func TestNextID(t *testing.T) {
	assert.Equal(t, "R0001", nextID("R", 4, nil))
	assert.Equal(t, "R0008", nextID("R", 4, []string{"R0001", "R0007", "R0003"}))
	assert.Equal(t, "M0002", nextID("M", 4, []string{"M0001", "R0009", "Mxyz"}))
	assert.Equal(t, "C011", nextID("C", 3, []string{"C010", "C002"}))
}

func TestFirstFreeID(t *testing.T) {
	assert.Equal(t, "C001", firstFreeID("C", 3, nil))
	assert.Equal(t, "C003", firstFreeID("C", 3, []string{"C001", "C002", "C004"}))
}
