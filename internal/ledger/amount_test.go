package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMicros(t *testing.T) {
	cases := []struct {
		coins string
		want  int64
	}{
		{"0", 0},
		{"1", 1_000_000},
		{"1.5", 1_500_000},
		{"0.000001", 1},
		{"0.0000004", 0},
		{"0.0000006", 1},
		{"123.456789", 123_456_789},
	}
	for _, c := range cases {
		got := ToMicros(decimal.RequireFromString(c.coins))
		assert.Equal(t, c.want, got, "coins=%s", c.coins)
	}
}

func TestFromMicros(t *testing.T) {
	assert.True(t, FromMicros(2_500_000).Equal(decimal.RequireFromString("2.5")))
	assert.True(t, FromMicros(1).Equal(decimal.RequireFromString("0.000001")))
	assert.True(t, FromMicros(0).Equal(decimal.Zero))
}

func TestMicrosRoundTrip(t *testing.T) {
	for _, micros := range []int64{0, 1, 999_999, 1_000_000, 123_456_789} {
		assert.Equal(t, micros, ToMicros(FromMicros(micros)))
	}
}
