package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// PlanType is the hosting tier.
type PlanType string

const (
	PlanStarter    PlanType = "starter"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

// Plan is a hosting tier with its resource limits and prices.
//
// Prices are Money, never float64: billing sums must not drift.
type Plan struct {
	ID           int64     `json:"id"`
	PlanType     PlanType  `json:"plan_type"`
	Storage      int       `json:"storage"`   // GB
	Bandwidth    int       `json:"bandwidth"` // GB
	Memory       int       `json:"memory"`    // GB of RAM
	CPU          int       `json:"cpu"`       // cores
	MonthlyCost  Money     `json:"monthly_cost"`
	PricePerHour Money     `json:"price_per_hour"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MoneyPlaces is the number of decimal places a price is stored with.
const MoneyPlaces = 2

// Money is an exact decimal amount with two decimal places.
//
// It serializes as a JSON string ("10.00") and is stored as TEXT, so no
// value ever passes through a binary float. Scan and UnmarshalJSON come
// from the embedded decimal.Decimal; both accept strings and numbers.
type Money struct {
	decimal.Decimal
}

// NewMoney parses s. It panics on malformed input and is meant for
// constants and tests.
func NewMoney(s string) Money {
	return Money{decimal.RequireFromString(s)}
}

// String formats the amount with exactly two decimal places.
func (m Money) String() string {
	return m.StringFixed(MoneyPlaces)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// Value stores the amount as fixed-point text.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
