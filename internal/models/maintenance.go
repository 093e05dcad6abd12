package models

import (
	"fmt"
	"time"
)

// Maintenance 维修记录
type Maintenance struct {
	ID          string            `json:"id" db:"id"`
	CarID       string            `json:"car_id" db:"car_id"`
	Technician  string            `json:"technician" db:"technician"`
	Date        time.Time         `json:"date" db:"date"`
	Description string            `json:"description" db:"description"`
	Status      MaintenanceStatus `json:"status" db:"status"`
}

// NewMaintenance 创建进行中的维修记录
func NewMaintenance(id, carID, technician, description string, at time.Time) *Maintenance {
	return &Maintenance{
		ID:          id,
		CarID:       carID,
		Technician:  technician,
		Date:        at,
		Description: description,
		Status:      MaintenanceInProgress,
	}
}

// InProgress 是否进行中
func (m *Maintenance) InProgress() bool {
	return m.Status == MaintenanceInProgress
}

// Complete 完成维修
func (m *Maintenance) Complete() {
	m.Status = MaintenanceCompleted
}

// CSVRecord 列顺序: id,car,technician,date,description,status
func (m *Maintenance) CSVRecord() []string {
	return []string{m.ID, m.CarID, m.Technician, formatTime(m.Date), m.Description, string(m.Status)}
}

// ParseMaintenanceRecord 解析维修记录
func ParseMaintenanceRecord(fields []string) (*Maintenance, error) {
	if len(fields) < 6 {
		return nil, fmt.Errorf("maintenance record: want 6 fields, got %d", len(fields))
	}
	f := trimAll(fields)

	date, err := parseTime(f[3])
	if err != nil {
		return nil, err
	}
	status, err := ParseMaintenanceStatus(f[5])
	if err != nil {
		return nil, err
	}
	return &Maintenance{
		ID:          f[0],
		CarID:       f[1],
		Technician:  f[2],
		Date:        date,
		Description: f[4],
		Status:      status,
	}, nil
}
