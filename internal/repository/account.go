package repository

import (
	"context"
	"fmt"

	"github.com/langchou/carrental/internal/models"
)

// LoadCustomers 获取所有客户
func (s *PGStore) LoadCustomers(ctx context.Context) ([]*models.Customer, error) {
	accounts, err := s.loadAccounts(ctx, "customers")
	if err != nil {
		return nil, err
	}
	customers := make([]*models.Customer, 0, len(accounts))
	for _, a := range accounts {
		customers = append(customers, &models.Customer{Account: a})
	}
	return customers, nil
}

// SaveCustomers 整体替换客户表
func (s *PGStore) SaveCustomers(ctx context.Context, customers []*models.Customer) error {
	accounts := make([]models.Account, 0, len(customers))
	for _, c := range customers {
		accounts = append(accounts, c.Account)
	}
	return s.saveAccounts(ctx, "customers", accounts)
}

// LoadAgents 获取所有员工
func (s *PGStore) LoadAgents(ctx context.Context) ([]*models.CompanyAgent, error) {
	accounts, err := s.loadAccounts(ctx, "agents")
	if err != nil {
		return nil, err
	}
	agents := make([]*models.CompanyAgent, 0, len(accounts))
	for _, a := range accounts {
		agents = append(agents, &models.CompanyAgent{Account: a})
	}
	return agents, nil
}

// SaveAgents 整体替换员工表
func (s *PGStore) SaveAgents(ctx context.Context, agents []*models.CompanyAgent) error {
	accounts := make([]models.Account, 0, len(agents))
	for _, a := range agents {
		accounts = append(accounts, a.Account)
	}
	return s.saveAccounts(ctx, "agents", accounts)
}

// table 只会是 customers 或 agents
func (s *PGStore) loadAccounts(ctx context.Context, table string) ([]models.Account, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, password FROM `+table+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Password); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return accounts, nil
}

func (s *PGStore) saveAccounts(ctx context.Context, table string, accounts []models.Account) error {
	err := s.withTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		insert := `INSERT INTO ` + table + ` (id, position, name, password) VALUES ($1, $2, $3, $4)`
		for i, a := range accounts {
			if _, err := q.Exec(ctx, insert, a.ID, i, a.Name, a.Password); err != nil {
				return fmt.Errorf("insert %s %s: %w", table, a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return nil
}
