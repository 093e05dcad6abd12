package models

import (
	"fmt"
	"strings"
)

// Category 车型分类
type Category string

const (
	CategorySUV   Category = "SUV"
	CategorySedan Category = "Sedan"
	CategoryVan   Category = "Van"
)

// Categories 全部车型，按展示顺序
var Categories = []Category{CategorySUV, CategorySedan, CategoryVan}

// FuelType 动力类型
type FuelType string

const (
	FuelDualMotor      FuelType = "Dual Motor"
	FuelStandardEngine FuelType = "Standard Engine"
	FuelEV             FuelType = "EV"
)

// FuelTypes 全部动力类型
var FuelTypes = []FuelType{FuelDualMotor, FuelStandardEngine, FuelEV}

// CarStatus 车辆状态，三者互斥
type CarStatus string

const (
	CarAvailable        CarStatus = "Available"
	CarRented           CarStatus = "Rented"
	CarUnderMaintenance CarStatus = "Under Maintenance"
)

// RentalStatus 租赁状态
type RentalStatus string

const (
	RentalActive    RentalStatus = "Active"
	RentalCompleted RentalStatus = "Completed"
)

// MaintenanceStatus 维修状态
type MaintenanceStatus string

const (
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
)

// ParseCategory 解析车型，大小写不敏感
func ParseCategory(s string) (Category, error) {
	return parseEnum("category", s, Categories...)
}

// ParseFuelType 解析动力类型，接受 "DualMotor"、"dual_motor" 等写法
func ParseFuelType(s string) (FuelType, error) {
	return parseEnum("fuel type", s, FuelTypes...)
}

// ParseCarStatus 解析车辆状态
func ParseCarStatus(s string) (CarStatus, error) {
	return parseEnum("car status", s, CarAvailable, CarRented, CarUnderMaintenance)
}

// ParseRentalStatus 解析租赁状态
func ParseRentalStatus(s string) (RentalStatus, error) {
	return parseEnum("rental status", s, RentalActive, RentalCompleted)
}

// ParseMaintenanceStatus 解析维修状态
func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	return parseEnum("maintenance status", s, MaintenanceInProgress, MaintenanceCompleted)
}

func parseEnum[T ~string](kind, s string, values ...T) (T, error) {
	key := normalize(s)
	for _, v := range values {
		if normalize(string(v)) == key {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

// normalize 去掉空格、下划线、连字符并转小写
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
