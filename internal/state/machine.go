package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/langchou/carrental/internal/models"
)

// 车辆状态常量，与 models.CarStatus 一一对应
const (
	StateAvailable   = string(models.CarAvailable)
	StateRented      = string(models.CarRented)
	StateMaintenance = string(models.CarUnderMaintenance)
)

// 事件常量
const (
	EventRent              = "rent"
	EventReturn            = "return"
	EventStartMaintenance  = "start_maintenance"
	EventFinishMaintenance = "finish_maintenance"
)

// ErrIllegalTransition 当前状态不允许该事件
var ErrIllegalTransition = errors.New("illegal car status transition")

// ChangeFunc 状态变更回调
type ChangeFunc func(change models.StatusChange)

// Machine 单辆车的状态机
type Machine struct {
	mu       sync.Mutex
	carID    string
	fsm      *fsm.FSM
	onChange ChangeFunc
	now      func() time.Time
}

// NewMachine 以车辆当前状态创建状态机
func NewMachine(carID string, initial models.CarStatus, onChange ChangeFunc) *Machine {
	if initial == "" {
		initial = models.CarAvailable
	}

	m := &Machine{
		carID:    carID,
		onChange: onChange,
		now:      time.Now,
	}

	// Rented 与 Under Maintenance 之间没有直接转换，必须先回到 Available
	m.fsm = fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: EventRent, Src: []string{StateAvailable}, Dst: StateRented},
			{Name: EventReturn, Src: []string{StateRented}, Dst: StateAvailable},
			{Name: EventStartMaintenance, Src: []string{StateAvailable}, Dst: StateMaintenance},
			{Name: EventFinishMaintenance, Src: []string{StateMaintenance}, Dst: StateAvailable},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onChange != nil && e.Src != e.Dst {
					m.onChange(models.StatusChange{
						CarID: m.carID,
						Event: e.Event,
						From:  models.CarStatus(e.Src),
						To:    models.CarStatus(e.Dst),
						At:    m.now(),
					})
				}
			},
		},
	)

	return m
}

// Current 当前状态
func (m *Machine) Current() models.CarStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.CarStatus(m.fsm.Current())
}

// Can 检查事件是否可触发
func (m *Machine) Can(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fsm.Can(event)
}

// Trigger 触发事件
func (m *Machine) Trigger(ctx context.Context, event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(ctx, event); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, event, m.fsm.Current())
		}
		return fmt.Errorf("trigger event %s: %w", event, err)
	}
	return nil
}

// Apply 对车辆触发事件并写回状态
func Apply(ctx context.Context, car *models.Car, event string, onChange ChangeFunc) error {
	m := NewMachine(car.ID, car.Status, onChange)
	if err := m.Trigger(ctx, event); err != nil {
		return err
	}
	car.Status = m.Current()
	return nil
}
