package state

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/carrental/internal/models"
)

func TestMachineTransitions(t *testing.T) {
	ctx := context.Background()
	var changes []models.StatusChange
	m := NewMachine("C001", models.CarAvailable, func(c models.StatusChange) {
		changes = append(changes, c)
	})

	require.NoError(t, m.Trigger(ctx, EventRent))
	assert.Equal(t, models.CarRented, m.Current())

	// 已租车辆不能直接进入维修
	err := m.Trigger(ctx, EventStartMaintenance)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, models.CarRented, m.Current())

	require.NoError(t, m.Trigger(ctx, EventReturn))
	require.NoError(t, m.Trigger(ctx, EventStartMaintenance))
	assert.Equal(t, models.CarUnderMaintenance, m.Current())
	assert.False(t, m.Can(EventRent))
	require.NoError(t, m.Trigger(ctx, EventFinishMaintenance))
	assert.Equal(t, models.CarAvailable, m.Current())

	require.Len(t, changes, 4)
	assert.Equal(t, "C001", changes[0].CarID)
	assert.Equal(t, models.CarAvailable, changes[0].From)
	assert.Equal(t, models.CarRented, changes[0].To)
	assert.Equal(t, EventFinishMaintenance, changes[3].Event)
}

func TestMachineRejectsIllegalEvents(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		from  models.CarStatus
		event string
	}{
		{models.CarAvailable, EventReturn},
		{models.CarAvailable, EventFinishMaintenance},
		{models.CarRented, EventRent},
		{models.CarUnderMaintenance, EventRent},
		{models.CarUnderMaintenance, EventStartMaintenance},
	}
	for _, tt := range tests {
		m := NewMachine("C001", tt.from, nil)
		err := m.Trigger(ctx, tt.event)
		assert.ErrorIs(t, err, ErrIllegalTransition, "%s from %s", tt.event, tt.from)
		assert.Equal(t, tt.from, m.Current())
	}
}

func TestApplyUpdatesCar(t *testing.T) {
	car := models.NewCar("C002", "Ford Explorer", models.CategorySUV, models.FuelStandardEngine, decimal.NewFromInt(75))

	var got models.StatusChange
	require.NoError(t, Apply(context.Background(), car, EventStartMaintenance, func(c models.StatusChange) { got = c }))
	assert.Equal(t, models.CarUnderMaintenance, car.Status)
	assert.Equal(t, models.CarUnderMaintenance, got.To)

	err := Apply(context.Background(), car, EventRent, nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, models.CarUnderMaintenance, car.Status)
}
