package service

import (
	"github.com/shopspring/decimal"
)

// Pricing 定价参数
type Pricing struct {
	Deposit             decimal.Decimal // 每单固定押金
	EarlyReturnDiscount decimal.Decimal // 提前归还时未使用部分的折扣比例
}

// DefaultPricing 押金 50，提前归还折扣 20%
func DefaultPricing() Pricing {
	return Pricing{
		Deposit:             decimal.NewFromInt(50),
		EarlyReturnDiscount: decimal.RequireFromString("0.20"),
	}
}

// Quote 下单前报价
type Quote struct {
	BasePrice decimal.Decimal
	Deposit   decimal.Decimal
	Total     decimal.Decimal
}

// Estimate 基础价 = 时租 × 小时数，总价 = 基础价 + 押金
func Estimate(rate decimal.Decimal, hours int, deposit decimal.Decimal) Quote {
	base := rate.Mul(decimal.NewFromInt(int64(hours)))
	return Quote{
		BasePrice: base,
		Deposit:   deposit,
		Total:     base.Add(deposit),
	}
}

// Outcome 归还类型
type Outcome string

const (
	OutcomeEarly  Outcome = "early"
	OutcomeOnTime Outcome = "on_time"
	OutcomeLate   Outcome = "late"
)

// Settlement 归还结算
type Settlement struct {
	FinalCost   decimal.Decimal
	Discount    decimal.Decimal
	ExtraCharge decimal.Decimal // 仅用于展示，已包含在线性费用中
	Outcome     Outcome
	Message     string
}

// Settle 计算最终费用
//
// 提前归还: 已用部分全价，未用部分减去 discountRate 的折扣。
// 准时归还: 实际小时 × 时租。
// 超时归还: 同样按实际小时线性计费，不加收罚金。
func Settle(rate decimal.Decimal, estimatedHours, actualHours int, discountRate decimal.Decimal) Settlement {
	actual := decimal.NewFromInt(int64(actualHours))
	estimated := decimal.NewFromInt(int64(estimatedHours))

	switch {
	case actualHours < estimatedHours:
		used := actual.Mul(rate)
		unused := estimated.Sub(actual).Mul(rate)
		discount := unused.Mul(discountRate)
		return Settlement{
			FinalCost:   used.Add(unused.Sub(discount)),
			Discount:    discount,
			ExtraCharge: decimal.Zero,
			Outcome:     OutcomeEarly,
			Message:     "Early return! $" + discount.StringFixed(2) + " discount applied",
		}
	case actualHours == estimatedHours:
		return Settlement{
			FinalCost:   actual.Mul(rate),
			Discount:    decimal.Zero,
			ExtraCharge: decimal.Zero,
			Outcome:     OutcomeOnTime,
			Message:     "On-time return",
		}
	default:
		extra := actual.Sub(estimated).Mul(rate)
		return Settlement{
			FinalCost:   actual.Mul(rate),
			Discount:    decimal.Zero,
			ExtraCharge: extra,
			Outcome:     OutcomeLate,
			Message:     "Late return - extra charge: $" + extra.StringFixed(2),
		}
	}
}
