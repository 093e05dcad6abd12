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

	"github.com/langchou/carrental/internal/models"
)

func TestRevenue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedCars(t, store,
		car("C001", 50, models.CategorySedan, models.FuelEV),
		car("C002", 80, models.CategorySUV, models.FuelEV),
		car("C003", 40, models.CategorySedan, models.FuelEV),
	)
	rentals := newRentalService(store)

	_, err := rentals.ConfirmBooking(ctx, "C001", "C001", "", 10)
	require.NoError(t, err)
	_, err = rentals.ProcessReturn(ctx, "C001", 6) // 460
	require.NoError(t, err)
	_, err = rentals.ConfirmBooking(ctx, "C001", "C002", "", 3)
	require.NoError(t, err)
	_, err = rentals.ProcessReturn(ctx, "C002", 2) // 224
	require.NoError(t, err)
	_, err = rentals.ConfirmBooking(ctx, "C001", "C003", "", 5) // 进行中，不计入
	require.NoError(t, err)

	svc := NewReportService(store, zap.NewNop())
	svc.SetClock(fixedClock)

	summary, err := svc.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CompletedRentals)
	assert.True(t, summary.TotalRevenue.Equal(decimal.NewFromInt(684)))

	agent := models.NewCompanyAgent("A001", "Admin", "admin123")
	_, content, err := svc.GenerateRevenueReport(ctx, agent)
	require.NoError(t, err)
	assert.Contains(t, content, "Total revenue:      $684.00")
	assert.Contains(t, content, "Agent:              Admin (A001)")

	paths, err := filepath.Glob(filepath.Join(store.Root(), "Admin", "Revenue", "Revenue_20240401_100000_*.txt"))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestRevenueEmpty(t *testing.T) {
	summary, err := NewReportService(newTestStore(t), zap.NewNop()).Revenue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.CompletedRentals)
	assert.True(t, summary.TotalRevenue.IsZero())
}
