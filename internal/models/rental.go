package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rental 租赁记录
type Rental struct {
	ID             string          `json:"id" db:"id"`
	CustomerID     string          `json:"customer_id" db:"customer_id"`
	CarID          string          `json:"car_id" db:"car_id"`
	DriverName     string          `json:"driver_name,omitempty" db:"driver_name"`
	StartTime      time.Time       `json:"start_time" db:"start_time"`
	EndTime        time.Time       `json:"end_time,omitempty" db:"end_time"` // Active 时为零值
	EstimatedHours int             `json:"estimated_hours" db:"estimated_hours"`
	ActualHours    int             `json:"actual_hours" db:"actual_hours"`
	TotalCost      decimal.Decimal `json:"total_cost" db:"total_cost"` // 下单时为基础价，归还后为最终费用
	Status         RentalStatus    `json:"status" db:"status"`
}

// NewRental 创建进行中的租赁
func NewRental(id, customerID, carID, driverName string, hours int, rate decimal.Decimal, start time.Time) *Rental {
	return &Rental{
		ID:             id,
		CustomerID:     customerID,
		CarID:          carID,
		DriverName:     driverName,
		StartTime:      start,
		EstimatedHours: hours,
		TotalCost:      rate.Mul(decimal.NewFromInt(int64(hours))),
		Status:         RentalActive,
	}
}

// IsActive 是否进行中
func (r *Rental) IsActive() bool {
	return r.Status == RentalActive
}

// Complete 结束租赁
func (r *Rental) Complete(actualHours int, finalCost decimal.Decimal, end time.Time) {
	r.EndTime = end
	r.ActualHours = actualHours
	r.TotalCost = finalCost
	r.Status = RentalCompleted
}

// CSVRecord 列顺序: id,customer,car,driver,start,end,estimated,actual,cost,status
func (r *Rental) CSVRecord() []string {
	return []string{
		r.ID,
		r.CustomerID,
		r.CarID,
		r.DriverName,
		formatTime(r.StartTime),
		formatTime(r.EndTime),
		fmt.Sprint(r.EstimatedHours),
		fmt.Sprint(r.ActualHours),
		r.TotalCost.String(),
		string(r.Status),
	}
}

// ParseRentalRecord 解析租赁记录
func ParseRentalRecord(fields []string) (*Rental, error) {
	if len(fields) < 10 {
		return nil, fmt.Errorf("rental record: want 10 fields, got %d", len(fields))
	}
	f := trimAll(fields)

	start, err := parseTime(f[4])
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, fmt.Errorf("rental %s: missing start time", f[0])
	}
	end, err := parseTime(f[5])
	if err != nil {
		return nil, err
	}
	est, err := parseInt("estimated hours", f[6])
	if err != nil {
		return nil, err
	}
	actual, err := parseInt("actual hours", f[7])
	if err != nil {
		return nil, err
	}
	cost, err := parseDecimal("total cost", f[8])
	if err != nil {
		return nil, err
	}
	status, err := ParseRentalStatus(f[9])
	if err != nil {
		return nil, err
	}

	return &Rental{
		ID:             f[0],
		CustomerID:     f[1],
		CarID:          f[2],
		DriverName:     f[3],
		StartTime:      start,
		EndTime:        end,
		EstimatedHours: est,
		ActualHours:    actual,
		TotalCost:      cost,
		Status:         status,
	}, nil
}
