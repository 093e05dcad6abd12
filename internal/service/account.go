package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
)

// AccountService 客户注册与登录
type AccountService struct {
	base
}

// NewAccountService 创建账号服务
func NewAccountService(store repository.Store, logger *zap.Logger) *AccountService {
	return &AccountService{base: newBase(store, logger)}
}

// RegisterCustomer 注册客户，名字不区分大小写唯一
func (s *AccountService) RegisterCustomer(ctx context.Context, name, password string) (*models.Customer, error) {
	const op = "register customer"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation(op, "Name is required")
	}
	if password == "" {
		return nil, apperr.Validation(op, "Password is required")
	}

	var customer *models.Customer
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		customers, err := tx.LoadCustomers(ctx)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(customers))
		for _, c := range customers {
			if strings.EqualFold(c.Name, name) {
				return apperr.InvalidState(op, "Customer name already exists")
			}
			ids = append(ids, c.ID)
		}

		customer = models.NewCustomer(nextID("C", 3, ids), name, password)
		return tx.SaveCustomers(ctx, append(customers, customer))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer registered", zap.String("customer_id", customer.ID))
	return customer, nil
}

// LoginCustomer 客户登录
func (s *AccountService) LoginCustomer(ctx context.Context, id, password string) (*models.Customer, error) {
	const op = "login customer"

	customers, err := s.store.LoadCustomers(ctx)
	if err != nil {
		return nil, s.persistence(op, err)
	}
	for _, c := range customers {
		if strings.EqualFold(c.ID, strings.TrimSpace(id)) && c.ValidatePassword(password) {
			return c, nil
		}
	}
	s.logger.Warn("Customer login failed", zap.String("customer_id", id))
	return nil, apperr.NotFound(op, "Invalid credentials")
}

// LoginAgent 员工登录
func (s *AccountService) LoginAgent(ctx context.Context, id, password string) (*models.CompanyAgent, error) {
	const op = "login agent"

	agents, err := s.store.LoadAgents(ctx)
	if err != nil {
		return nil, s.persistence(op, err)
	}
	for _, a := range agents {
		if strings.EqualFold(a.ID, strings.TrimSpace(id)) && a.ValidatePassword(password) {
			return a, nil
		}
	}
	s.logger.Warn("Agent login failed", zap.String("agent_id", id))
	return nil, apperr.NotFound(op, "Invalid credentials")
}
