package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Car 车辆信息
type Car struct {
	ID         string          `json:"id" db:"id"`
	Model      string          `json:"model" db:"model"`
	Category   Category        `json:"category" db:"category"`
	FuelType   FuelType        `json:"fuel_type" db:"fuel_type"`
	HourlyRate decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	Status     CarStatus       `json:"status" db:"status"`

	// 以下字段仅在 Rented 状态下有值
	RenterID       string    `json:"renter_id,omitempty" db:"renter_id"`
	RentalStart    time.Time `json:"rental_start,omitempty" db:"rental_start"`
	EstimatedHours int       `json:"estimated_hours,omitempty" db:"estimated_hours"`
}

// NewCar 创建一辆可租车辆
func NewCar(id, model string, category Category, fuel FuelType, rate decimal.Decimal) *Car {
	return &Car{
		ID:         id,
		Model:      model,
		Category:   category,
		FuelType:   fuel,
		HourlyRate: rate,
		Status:     CarAvailable,
	}
}

// AttachRental 写入租赁字段，状态由状态机负责
func (c *Car) AttachRental(renterID string, start time.Time, hours int) {
	c.RenterID = renterID
	c.RentalStart = start
	c.EstimatedHours = hours
}

// ClearRental 清空租赁字段
func (c *Car) ClearRental() {
	c.RenterID = ""
	c.RentalStart = time.Time{}
	c.EstimatedHours = 0
}

// Validate 检查状态与租赁字段的一致性
func (c *Car) Validate() error {
	if c.ID == "" {
		return errors.New("car id is empty")
	}
	if c.HourlyRate.IsNegative() {
		return fmt.Errorf("car %s: negative hourly rate", c.ID)
	}
	rented := c.Status == CarRented
	hasRental := c.RenterID != "" || !c.RentalStart.IsZero() || c.EstimatedHours != 0
	switch {
	case rented && (c.RenterID == "" || c.RentalStart.IsZero() || c.EstimatedHours <= 0):
		return fmt.Errorf("car %s: rented without complete rental info", c.ID)
	case !rented && hasRental:
		return fmt.Errorf("car %s: rental info present while %s", c.ID, c.Status)
	}
	return nil
}

// CSVRecord 转为 CSV 字段
// 列顺序: id,model,category,fuel,rate,status,renter,start,estimatedHours
func (c *Car) CSVRecord() []string {
	rec := []string{
		c.ID,
		c.Model,
		string(c.Category),
		string(c.FuelType),
		c.HourlyRate.String(),
		string(c.Status),
		"", "", "",
	}
	if c.RenterID != "" {
		rec[6] = c.RenterID
		rec[7] = formatTime(c.RentalStart)
		rec[8] = fmt.Sprint(c.EstimatedHours)
	}
	return rec
}

// ParseCarRecord 从 CSV 字段解析车辆
func ParseCarRecord(fields []string) (*Car, error) {
	if len(fields) < 6 {
		return nil, fmt.Errorf("car record: want at least 6 fields, got %d", len(fields))
	}
	f := trimAll(fields)

	category, err := ParseCategory(f[2])
	if err != nil {
		return nil, err
	}
	fuel, err := ParseFuelType(f[3])
	if err != nil {
		return nil, err
	}
	rate, err := parseDecimal("hourly rate", f[4])
	if err != nil {
		return nil, err
	}
	status, err := ParseCarStatus(f[5])
	if err != nil {
		return nil, err
	}

	car := &Car{
		ID:         f[0],
		Model:      f[1],
		Category:   category,
		FuelType:   fuel,
		HourlyRate: rate,
		Status:     status,
	}

	// 租赁信息
	if len(f) >= 9 && f[6] != "" {
		start, err := parseTime(f[7])
		if err != nil {
			return nil, err
		}
		hours, err := parseInt("estimated hours", f[8])
		if err != nil {
			return nil, err
		}
		car.AttachRental(f[6], start, hours)
	}

	if err := car.Validate(); err != nil {
		return nil, err
	}
	return car, nil
}
