package polyclob

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// CollateralDecimals is the fixed-point scale of the collateral token.
	CollateralDecimals = 6

	// sizeDecimals is the precision sizes are rounded to before scaling.
	sizeDecimals = 2

	// ZeroAddress is the public taker for unrestricted orders.
	ZeroAddress = "0x0000000000000000000000000000000000000000"
)

var one = decimal.NewFromInt(1)

// supportedTicks maps each tick size the exchange registers to its
// decimal precision.
var supportedTicks = map[string]int32{
	"0.1":    1,
	"0.01":   2,
	"0.001":  3,
	"0.0001": 4,
}

// tickDecimals returns the price precision implied by a tick size.
func tickDecimals(tick decimal.Decimal) (int32, error) {
	if d, ok := supportedTicks[tick.String()]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unsupported tick size: %s", tick)
}

// amountDecimals returns the precision collateral amounts are rounded to
// for a given tick size, two digits finer than the price grid.
func amountDecimals(tick decimal.Decimal) (int32, error) {
	d, err := tickDecimals(tick)
	if err != nil {
		return 0, err
	}
	return d + 2, nil
}

// snapToTick rounds a price onto the market's tick grid using
// round-half-to-even, avoiding systematic bias.
func snapToTick(price, tick decimal.Decimal) (decimal.Decimal, error) {
	d, err := tickDecimals(tick)
	if err != nil {
		return decimal.Zero, err
	}
	return price.RoundBank(d), nil
}

// validatePriceRange checks a snapped price sits strictly inside the
// book: at least one tick, at most one minus one tick.
func validatePriceRange(price, tick decimal.Decimal) error {
	if price.Cmp(tick) < 0 || price.Cmp(one.Sub(tick)) > 0 {
		return &InvalidOrderError{
			Message: fmt.Sprintf("price %s outside allowed range [%s, %s]", price, tick, one.Sub(tick)),
		}
	}
	return nil
}

// toRawUnits scales a decimal amount into integer collateral units,
// truncating any residue below the fixed-point resolution.
func toRawUnits(amount decimal.Decimal) string {
	return amount.Shift(CollateralDecimals).Truncate(0).String()
}
