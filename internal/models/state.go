package models

import "time"

// StatusChange 车辆状态变更记录
type StatusChange struct {
	CarID string    `json:"car_id"`
	Event string    `json:"event"`
	From  CarStatus `json:"from"`
	To    CarStatus `json:"to"`
	At    time.Time `json:"at"`
}
