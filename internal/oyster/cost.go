package oyster

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/conversion"
)

var (
	zero          = big.NewInt(0)
	secondsInHour = big.NewInt(constants.SecondsInHour)
)

// ComputeCost is rate times duration in seconds. A nil rate costs nothing.
func ComputeCost(duration int64, rate *big.Int) *big.Int {
	if rate == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(rate, big.NewInt(duration))
}

// ComputeDuration converts a user entered amount of units into seconds, rounding
// down. Invalid or negative input is zero.
func ComputeDuration(durationString string, unitInSeconds int64) int64 {
	s := strings.TrimSpace(durationString)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.Mul(decimal.NewFromInt(unitInSeconds)).Floor().IntPart()
}

// ComputeDurationString is the whole number of units in duration, or "" for nothing.
func ComputeDurationString(duration int64, unitInSeconds int64) string {
	if duration == 0 || unitInSeconds == 0 {
		return ""
	}
	return strconv.FormatInt(duration/unitInSeconds, 10)
}

// ConvertRateToPerHourString renders a per second rate as a per hour amount.
func ConvertRateToPerHourString(rate *big.Int, decimals int, precision int) string {
	if rate == nil {
		return "0"
	}
	return conversion.BigIntToString(new(big.Int).Mul(rate, secondsInHour), decimals, precision)
}

func ConvertHourlyRateToSecondlyRate(rate *big.Int) *big.Int {
	if rate == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(rate, secondsInHour)
}

// DownScaleRate divides a contract rate by the marketplace scaling factor.
func DownScaleRate(rate *big.Int, scalingFactor *big.Int) *big.Int {
	if rate == nil {
		return big.NewInt(0)
	}
	if scalingFactor == nil || scalingFactor.Sign() == 0 {
		return new(big.Int).Set(rate)
	}
	return new(big.Int).Quo(rate, scalingFactor)
}

// UpScaleRate is the inverse of DownScaleRate, used when a user enters a rate.
func UpScaleRate(rate *big.Int, scalingFactor *big.Int) *big.Int {
	if rate == nil {
		return big.NewInt(0)
	}
	if scalingFactor == nil || scalingFactor.Sign() == 0 {
		return new(big.Int).Set(rate)
	}
	return new(big.Int).Mul(rate, scalingFactor)
}

// HourlyRateToContractRate turns a per hour amount into the up scaled per second rate
// the contract takes. Scaling happens before the division.
func HourlyRateToContractRate(hourly *big.Int, scalingFactor *big.Int) *big.Int {
	if hourly == nil {
		return big.NewInt(0)
	}
	rate := new(big.Int).Set(hourly)
	if scalingFactor != nil && scalingFactor.Sign() != 0 {
		rate.Mul(rate, scalingFactor)
	}
	return rate.Quo(rate, secondsInHour)
}

// DurationForAmount is the whole number of seconds amount pays for at the down scaled
// rate, capped at math.MaxInt64. A zero rate pays for nothing.
func DurationForAmount(amount *big.Int, downScaledRate *big.Int) int64 {
	if amount == nil || downScaledRate == nil || downScaledRate.Sign() <= 0 {
		return 0
	}
	return ClampInt64(new(big.Int).Quo(amount, downScaledRate))
}

// ClampInt64 is v limited to the int64 range.
func ClampInt64(v *big.Int) int64 {
	switch {
	case v.IsInt64():
		return v.Int64()
	case v.Sign() > 0:
		return math.MaxInt64
	default:
		return math.MinInt64
	}
}

// AddSeconds is base+secs, saturating at math.MaxInt64 for positive secs.
func AddSeconds(base, secs int64) int64 {
	if secs > 0 && base > math.MaxInt64-secs {
		return math.MaxInt64
	}
	return base + secs
}
