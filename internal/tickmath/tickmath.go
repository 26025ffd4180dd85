// Package tickmath holds the pure price/amount arithmetic used by the agent:
// tick-to-price conversion, randomized order sizing, and tick-range generation
// aligned to a fee tier's spacing grid. All randomness is drawn from a caller
// supplied *rand.Rand so runs are reproducible under a fixed seed.
package tickmath

import (
	"math"
	"math/rand"
	"strings"
)

// One tick is a 0.01% (1.0001x) price step, the usual concentrated-liquidity
// convention.
const tickBase = 1.0001

// Offset windows for generated order ticks, in ticks around the reference.
const (
	PassiveOffsetMax    = 200
	AggressiveOffsetMax = 50
)

// USD notional bounds for generated trade sizes.
const (
	DefaultMinNotionalUSD = 20
	DefaultMaxNotionalUSD = 200
)

// QuoteTokenUSD maps a quote-currency symbol suffix to an approximate USD
// price for the quote leg. Markets are displayed as BASE/QUOTE; anything not
// recognized is assumed to be a dollar stable.
func QuoteTokenUSD(symbol string) float64 {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case strings.HasSuffix(s, "/ETH"), strings.HasSuffix(s, "/WETH"):
		return 3000
	case strings.HasSuffix(s, "/BTC"), strings.HasSuffix(s, "/WBTC"):
		return 60000
	default:
		return 1
	}
}

// PriceFromTick converts a discrete tick to a human USD price. Decimal
// difference between base and quote tokens is folded into the exponent. The
// result is guarded: any non-finite or non-positive value collapses to 1.0 so
// downstream sizing never divides by zero or NaN.
func PriceFromTick(tick int64, baseDecimals, quoteDecimals int, symbol string) float64 {
	raw := math.Pow(tickBase, float64(tick))
	adj := raw * math.Pow(10, float64(baseDecimals-quoteDecimals))
	price := adj * QuoteTokenUSD(symbol)
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 1.0
	}
	return price
}

// TickFromPrice is the inverse of PriceFromTick for a USD price, used when
// seeding a market from an external reference price. Returns 0 for degenerate
// inputs.
func TickFromPrice(priceUSD float64, baseDecimals, quoteDecimals int, symbol string) int64 {
	if math.IsNaN(priceUSD) || math.IsInf(priceUSD, 0) || priceUSD <= 0 {
		return 0
	}
	adj := priceUSD / QuoteTokenUSD(symbol)
	raw := adj / math.Pow(10, float64(baseDecimals-quoteDecimals))
	if raw <= 0 {
		return 0
	}
	tick := math.Round(math.Log(raw) / math.Log(tickBase))
	if math.IsNaN(tick) || math.IsInf(tick, 0) {
		return 0
	}
	return int64(tick)
}

// RandomAmount draws a uniform USD notional in [minUSD, maxUSD] and converts
// it to the token's smallest unit at the given USD price. The result is
// floored and never less than 1 unit.
func RandomAmount(rng *rand.Rand, minUSD, maxUSD float64, decimals int, priceUSD float64) int64 {
	if maxUSD < minUSD {
		minUSD, maxUSD = maxUSD, minUSD
	}
	usd := minUSD + rng.Float64()*(maxUSD-minUSD)
	if priceUSD <= 0 || math.IsNaN(priceUSD) || math.IsInf(priceUSD, 0) {
		priceUSD = 1.0
	}
	units := math.Floor(usd / priceUSD * math.Pow(10, float64(decimals)))
	if units < 1 {
		return 1
	}
	return int64(units)
}

// BuyOrderTick picks a tick for a resting or crossing buy order relative to
// the current tick: 70% of the time below market (passive), otherwise above
// (aggressive, likely to cross).
func BuyOrderTick(rng *rand.Rand, currentTick int64) int64 {
	if rng.Float64() < 0.7 {
		return currentTick - 1 - rng.Int63n(PassiveOffsetMax)
	}
	return currentTick + rng.Int63n(AggressiveOffsetMax+1)
}

// SellOrderTick mirrors BuyOrderTick for the sell side: 70% above market,
// 30% at or below.
func SellOrderTick(rng *rand.Rand, currentTick int64) int64 {
	if rng.Float64() < 0.7 {
		return currentTick + 1 + rng.Int63n(PassiveOffsetMax)
	}
	return currentTick - rng.Int63n(AggressiveOffsetMax+1)
}

// TriggerTicks returns (triggerTick, limitTick) for a protective trigger. A
// sell trigger arms below market and limits a little further down; a buy
// trigger is the mirror image.
func TriggerTicks(rng *rand.Rand, currentTick int64, sell bool) (int64, int64) {
	gap := 1 + rng.Int63n(PassiveOffsetMax)
	slip := 1 + rng.Int63n(AggressiveOffsetMax)
	if sell {
		trigger := currentTick - gap
		return trigger, trigger - slip
	}
	trigger := currentTick + gap
	return trigger, trigger + slip
}

// TickSpacingFromFeePips maps a fee tier (in pips, hundredths of a bp) to its
// tick spacing. Unknown tiers use the mid spacing.
func TickSpacingFromFeePips(feePips int) int64 {
	switch feePips {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 60
	}
}

// AlignDown rounds tick toward negative infinity to a multiple of spacing.
func AlignDown(tick, spacing int64) int64 {
	if spacing <= 0 {
		return tick
	}
	r := tick % spacing
	if r == 0 {
		return tick
	}
	if tick < 0 {
		return tick - (spacing + r)
	}
	return tick - r
}

// AlignUp rounds tick toward positive infinity to a multiple of spacing.
func AlignUp(tick, spacing int64) int64 {
	if spacing <= 0 {
		return tick
	}
	r := tick % spacing
	if r == 0 {
		return tick
	}
	if tick < 0 {
		return tick - r
	}
	return tick + (spacing - r)
}

// LiquidityRange generates an aligned [lower, upper] tick range around the
// current tick for the given fee tier. Raw bounds are snapped outward (lower
// down, upper up) to the spacing grid and the upper bound is forced strictly
// above the lower by at least one spacing unit.
func LiquidityRange(rng *rand.Rand, currentTick int64, feePips int) (int64, int64) {
	spacing := TickSpacingFromFeePips(feePips)
	width := 1 + rng.Int63n(PassiveOffsetMax)
	rawLower := currentTick - width
	rawUpper := currentTick + 1 + rng.Int63n(PassiveOffsetMax)
	lower := AlignDown(rawLower, spacing)
	upper := AlignUp(rawUpper, spacing)
	if upper <= lower {
		upper = lower + spacing
	}
	return lower, upper
}

// GridTicks lays out n order ticks stepping away from startTick by a uniform
// random step in [1, maxStep] per level. Direction -1 builds a buy ladder
// below market, +1 a sell ladder above.
func GridTicks(rng *rand.Rand, startTick int64, n int, direction int64) []int64 {
	if n <= 0 {
		return nil
	}
	maxStep := int64(AggressiveOffsetMax)
	ticks := make([]int64, 0, n)
	tick := startTick
	for i := 0; i < n; i++ {
		tick += direction * (1 + rng.Int63n(maxStep))
		ticks = append(ticks, tick)
	}
	return ticks
}
