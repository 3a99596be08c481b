package conversion

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad int %s", s)
	return v
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.0", FormatUnits(mustInt(t, "1000000000000000000"), 18))
	assert.Equal(t, "1.5", FormatUnits(mustInt(t, "1500000000000000000"), 18))
	assert.Equal(t, "0.000001", FormatUnits(big.NewInt(1), 6))
	assert.Equal(t, "-2.25", FormatUnits(big.NewInt(-2250000), 6))
	assert.Equal(t, "42.0", FormatUnits(big.NewInt(42), 0))
	assert.Equal(t, "0.0", FormatUnits(nil, 18))
}

func TestBigIntToStringTruncates(t *testing.T) {
	v := mustInt(t, "1239999999999999999")
	assert.Equal(t, "1.23", BigIntToString(v, 18, 2))
	assert.Equal(t, "1", BigIntToString(v, 18, 0))
	assert.Equal(t, "1.239999999999999999", BigIntToString(v, 18, 30))
	assert.Equal(t, "1", BigIntToString(mustInt(t, "1005000000000000000"), 18, 2))
	assert.Equal(t, "0", BigIntToString(nil, 18, 2))
}

func TestBigIntToCommaString(t *testing.T) {
	v := mustInt(t, "1234567891234567")
	assert.Equal(t, "1,234,567.891", BigIntToCommaString(v, 3, 9))
	assert.Equal(t, "1,234,567", BigIntToCommaString(mustInt(t, "1234567000000000"), 3, 9))
	assert.Equal(t, "999", BigIntToCommaString(big.NewInt(999), 2, 0))
}

func TestIntStringToCommaString(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"1":        "1",
		"123":      "123",
		"1234":     "1,234",
		"1234567":  "1,234,567",
		"-1234567": "-1,234,567",
		"12345.67": "12,345.67",
	}
	for in, want := range cases {
		assert.Equal(t, want, IntStringToCommaString(in), in)
	}
}

func TestStringToBigInt(t *testing.T) {
	v, err := StringToBigInt("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())

	v, err = StringToBigInt("0.1234567", 6)
	require.NoError(t, err)
	assert.Equal(t, "123456", v.String())

	v, err = StringToBigInt("1,234.5", 2)
	require.NoError(t, err)
	assert.Equal(t, "123450", v.String())

	v, err = StringToBigInt("", 18)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Int64())

	_, err = StringToBigInt("1.2.3", 18)
	assert.Error(t, err)
}

func TestTruncateBigInt(t *testing.T) {
	assert.Equal(t, "1230000", TruncateBigInt(big.NewInt(1239999), 6, 2).String())
	assert.Equal(t, "1239999", TruncateBigInt(big.NewInt(1239999), 6, 6).String())
	assert.Equal(t, "1239999", TruncateBigInt(big.NewInt(1239999), 6, 8).String())
	assert.Equal(t, "0", TruncateBigInt(big.NewInt(999), 6, 2).String())
}

func TestFormatParseRoundTrip(t *testing.T) {
	values := []string{
		"0",
		"1",
		"999",
		"1000000",
		"1239999",
		"1000000000000000000",
		"1234567890123456789012345",
		"100000000000000000000000000000000000000000001",
	}
	for _, s := range values {
		x := mustInt(t, s)
		for _, decimals := range []int{0, 1, 6, 18} {
			for precision := 0; precision <= 20; precision++ {
				parsed, err := StringToBigInt(BigIntToString(x, decimals, precision), decimals)
				require.NoError(t, err)
				assert.Equal(t, TruncateBigInt(x, decimals, precision).String(), parsed.String(),
					"x=%s decimals=%d precision=%d", s, decimals, precision)

				commaParsed, err := StringToBigInt(BigIntToCommaString(x, precision, decimals), decimals)
				require.NoError(t, err)
				assert.Equal(t, parsed.String(), commaParsed.String())
			}
		}
	}
}

func TestEpochToDurationString(t *testing.T) {
	assert.Equal(t, "4 months 22 days 18 hours 13 mins 42 secs", EpochToDurationString(12334422))
	assert.Equal(t, "1 hour", EpochToDurationString(3600))
	assert.Equal(t, "1 day 1 min", EpochToDurationString(86460))
	assert.Equal(t, "", EpochToDurationString(0))
}
