package conversion

import (
	"strconv"
	"strings"
)

// EpochToDurationString renders seconds as "4 months 22 days 18 hours 13 mins 42 secs".
// A month counts as 30 days and zero components are skipped.
func EpochToDurationString(epoch int64) string {
	if epoch <= 0 {
		return ""
	}
	seconds := epoch % 60
	minutes := (epoch / 60) % 60
	hours := (epoch / 3600) % 24
	days := (epoch / 86400) % 30
	months := epoch / (86400 * 30)

	var parts []string
	add := func(n int64, one, many string) {
		if n <= 0 {
			return
		}
		unit := one
		if n > 1 {
			unit = many
		}
		parts = append(parts, strconv.FormatInt(n, 10)+" "+unit)
	}
	add(months, "month", "months")
	add(days, "day", "days")
	add(hours, "hour", "hours")
	add(minutes, "min", "mins")
	add(seconds, "secs", "secs")
	return strings.Join(parts, " ")
}
