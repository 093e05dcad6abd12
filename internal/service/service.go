package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
	"github.com/langchou/carrental/internal/state"
)

// base 各服务共用的依赖
type base struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func newBase(store repository.Store, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{store: store, logger: logger, now: time.Now}
}

// SetClock 替换时间来源
func (b *base) SetClock(now func() time.Time) {
	b.now = now
}

// atomic 在存储事务中执行 fn，非业务错误统一归为 Persistence
func (b *base) atomic(ctx context.Context, op string, fn func(tx repository.Store) error) error {
	err := b.store.Atomic(ctx, fn)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	b.logger.Error("Storage operation failed", zap.String("op", op), zap.Error(err))
	return apperr.Persistence(op, err)
}

// persistence 包装只读操作的存储错误
func (b *base) persistence(op string, err error) error {
	b.logger.Error("Storage operation failed", zap.String("op", op), zap.Error(err))
	return apperr.Persistence(op, err)
}

// transition 通过状态机修改车辆状态
func (b *base) transition(ctx context.Context, op string, car *models.Car, event string) error {
	err := state.Apply(ctx, car, event, b.onStateChange)
	if err == nil {
		return nil
	}
	if errors.Is(err, state.ErrIllegalTransition) {
		return apperr.InvalidState(op, fmt.Sprintf("Car %s cannot %s while %s", car.ID, strings.ReplaceAll(event, "_", " "), car.Status))
	}
	return err
}

func (b *base) onStateChange(change models.StatusChange) {
	b.logger.Info("Car status changed",
		zap.String("car_id", change.CarID),
		zap.String("event", change.Event),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
	)
}

// findCar 线性查找车辆
func findCar(cars []*models.Car, id string) *models.Car {
	for _, c := range cars {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// nextID 取同前缀编号的最大值加一，例如 R0007 之后是 R0008
func nextID(prefix string, width int, ids []string) string {
	highest := 0
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, width, highest+1)
}

// firstFreeID 从 1 开始找第一个未被占用的编号
func firstFreeID(prefix string, width int, ids []string) string {
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		taken[id] = true
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf("%s%0*d", prefix, width, n)
		if !taken[id] {
			return id
		}
	}
}
