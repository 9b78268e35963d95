// Package budget holds the pure arithmetic behind department budget checks.
package budget

import "github.com/shopspring/decimal"

// DefaultThreshold is the alert ratio used when a production does not set one.
var DefaultThreshold = decimal.RequireFromString("0.80")

// utilizationPrecision is the number of decimal places kept on a ratio
const utilizationPrecision = 4

// Utilization returns committed / allocated rounded for display.
// A non-positive allocation reports 1 so a degenerate budget reads as fully consumed.
func Utilization(committed, allocated decimal.Decimal) decimal.Decimal {
	if allocated.Sign() <= 0 {
		return decimal.NewFromInt(1)
	}
	return committed.DivRound(allocated, utilizationPrecision)
}

// IsOverBudget reports projected > allocated. Landing exactly on the allocation is allowed.
func IsOverBudget(projected, allocated decimal.Decimal) bool {
	return projected.GreaterThan(allocated)
}

// IsThresholdBreached reports committed / allocated >= threshold on exact values.
// A zero threshold falls back to DefaultThreshold; a non-positive allocation reads as fully consumed.
func IsThresholdBreached(committed, allocated, threshold decimal.Decimal) bool {
	if threshold.IsZero() {
		threshold = DefaultThreshold
	}
	if allocated.Sign() <= 0 {
		return decimal.NewFromInt(1).GreaterThanOrEqual(threshold)
	}
	return committed.GreaterThanOrEqual(threshold.Mul(allocated))
}

// Snapshot is the utilization of one department at a point in time
type Snapshot struct {
	Allocated   decimal.Decimal `json:"allocated"`
	Committed   decimal.Decimal `json:"committed"`
	Utilization decimal.Decimal `json:"utilization"`
	Threshold   decimal.Decimal `json:"threshold"`
	IsThreshold bool            `json:"is_threshold"`
}

// NewSnapshot computes the display utilization and the exact threshold flag for a committed sum
func NewSnapshot(committed, allocated, threshold decimal.Decimal) Snapshot {
	if threshold.IsZero() {
		threshold = DefaultThreshold
	}
	u := Utilization(committed, allocated)
	return Snapshot{
		Allocated:   allocated,
		Committed:   committed,
		Utilization: u,
		Threshold:   threshold,
		IsThreshold: IsThresholdBreached(committed, allocated, threshold),
	}
}
