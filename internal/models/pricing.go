package models

import (
	"math"

	"cafe-orders/internal/apperror"
)

// LinePrice returns (unit + sum of option prices) * quantity. Prices are
// non-negative; a result that does not fit in int64 is ErrPriceOverflow.
func LinePrice(unit int64, optionPrices []int64, quantity int) (int64, error) {
	per := unit
	for _, p := range optionPrices {
		var err error
		if per, err = AddPrice(per, p); err != nil {
			return 0, err
		}
	}
	if quantity > 0 && per > math.MaxInt64/int64(quantity) {
		return 0, apperror.ErrPriceOverflow
	}
	return per * int64(quantity), nil
}

// AddPrice sums two non-negative prices
func AddPrice(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, apperror.ErrPriceOverflow
	}
	return a + b, nil
}

// SelectOptions keeps the options whose id was requested, each at most once,
// in the order of available. Ids owned by other items are dropped because
// available only holds the line's own options.
func SelectOptions(available []Option, requested []int64) []Option {
	want := make(map[int64]bool, len(requested))
	for _, id := range requested {
		want[id] = true
	}

	selected := make([]Option, 0, len(requested))
	for _, opt := range available {
		if want[opt.ID] {
			selected = append(selected, opt)
			delete(want, opt.ID)
		}
	}
	return selected
}

// UniqueIDs returns ids without duplicates, keeping first occurrence order
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
