package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
)

// LoadMaintenance 获取所有维修记录
func (s *PGStore) LoadMaintenance(ctx context.Context) ([]*models.Maintenance, error) {
	query := `
		SELECT id, car_id, technician, date, description, status
		FROM maintenance ORDER BY position
	`
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	defer rows.Close()

	var records []*models.Maintenance
	for rows.Next() {
		m := &models.Maintenance{}
		var (
			date   time.Time
			status string
		)
		if err := rows.Scan(&m.ID, &m.CarID, &m.Technician, &date, &m.Description, &status); err != nil {
			return nil, fmt.Errorf("scan maintenance: %w", err)
		}
		m.Date = localWall(&date)
		if m.Status, err = models.ParseMaintenanceStatus(status); err != nil {
			s.logger.Warn("Skipping invalid maintenance row", zap.String("maintenance_id", m.ID), zap.Error(err))
			continue
		}
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maintenance: %w", err)
	}

	return records, nil
}

// SaveMaintenance 整体替换维修表
func (s *PGStore) SaveMaintenance(ctx context.Context, records []*models.Maintenance) error {
	insert := `
		INSERT INTO maintenance (id, position, car_id, technician, date, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	err := s.withTx(ctx, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM maintenance`); err != nil {
			return fmt.Errorf("clear maintenance: %w", err)
		}
		for i, m := range records {
			_, err := q.Exec(ctx, insert, m.ID, i, m.CarID, m.Technician, m.Date, m.Description, string(m.Status))
			if err != nil {
				return fmt.Errorf("insert maintenance %s: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save maintenance: %w", err)
	}
	return nil
}
