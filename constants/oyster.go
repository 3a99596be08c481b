package constants

// RateMetadata describes how oyster rates are displayed and revised.
type RateMetadata struct {
	Currency              string
	Symbol                string
	Decimal               int
	Unit                  string
	UnitInSeconds         int64
	RateReviseWaitingTime int64
}

var OysterRateMetadata = RateMetadata{
	Currency:              "USDC",
	Symbol:                "$",
	Decimal:               18,
	Unit:                  "hour",
	UnitInSeconds:         SecondsInHour,
	RateReviseWaitingTime: 5 * 60,
}

// OysterRateScalingFactor is applied by the market contract to every rate (1e12).
const OysterRateScalingFactor = "1000000000000"

const OysterTableItemsPerPage = 10
