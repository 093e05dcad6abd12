package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/langchou/carrental/internal/models"
)

// Store 持久化网关，每个集合整体读取、整体保存
type Store interface {
	LoadCars(ctx context.Context) ([]*models.Car, error)
	SaveCars(ctx context.Context, cars []*models.Car) error

	LoadRentals(ctx context.Context) ([]*models.Rental, error)
	SaveRentals(ctx context.Context, rentals []*models.Rental) error

	LoadMaintenance(ctx context.Context) ([]*models.Maintenance, error)
	SaveMaintenance(ctx context.Context, records []*models.Maintenance) error

	LoadCustomers(ctx context.Context) ([]*models.Customer, error)
	SaveCustomers(ctx context.Context, customers []*models.Customer) error

	LoadAgents(ctx context.Context) ([]*models.CompanyAgent, error)
	SaveAgents(ctx context.Context, agents []*models.CompanyAgent) error

	// SaveDocument 保存收据、营收报表等文本
	SaveDocument(ctx context.Context, doc Document) error

	// Atomic 在同一个事务边界内执行 fn，fn 返回错误时回滚
	Atomic(ctx context.Context, fn func(Store) error) error
}

// DocumentKind 文档类型
type DocumentKind string

const (
	DocumentReceipt DocumentKind = "receipt"
	DocumentRevenue DocumentKind = "revenue"
)

// Document 文本文档
type Document struct {
	ID        string // UUID
	Kind      DocumentKind
	OwnerID   string // 收据为客户 ID，报表为员工 ID
	CreatedAt time.Time
	Content   string
}

// idLess 按前缀 + 数字自然排序，使 R10000 排在 R9999 之后
func idLess(a, b string) bool {
	pa, na, oka := splitID(a)
	pb, nb, okb := splitID(b)
	if oka && okb && pa == pb {
		if na != nb {
			return na < nb
		}
		return a < b
	}
	return a < b
}

func splitID(id string) (string, int, bool) {
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return id, 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, 0, false
	}
	return id[:i], n, true
}

func sortByID[T any](items []T, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return idLess(id(items[i]), id(items[j]))
	})
}
