package responder

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_EvenSplit(t *testing.T) {
	schedule, err := BuildSchedule(decimal.NewFromInt(6), 3, 8)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	for _, chunk := range schedule {
		assert.True(t, chunk.Equal(decimal.NewFromInt(2)), "chunk = %s", chunk)
	}
}

func TestBuildSchedule_ResidueOnLastChunk(t *testing.T) {
	target := decimal.NewFromInt(10)
	schedule, err := BuildSchedule(target, 3, 8)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	per := decimal.RequireFromString("3.33333333")
	assert.True(t, schedule[0].Equal(per))
	assert.True(t, schedule[1].Equal(per))
	assert.True(t, schedule[2].Equal(decimal.RequireFromString("3.33333334")))

	sum := decimal.Zero
	for _, chunk := range schedule {
		sum = sum.Add(chunk)
	}
	assert.True(t, sum.Equal(target), "sum = %s", sum)
}

func TestBuildSchedule_SumsExactly(t *testing.T) {
	targets := []string{"1", "0.1", "7.77", "100", "0.000123", "3.14159265"}
	for _, ts := range targets {
		target := decimal.RequireFromString(ts)
		for parts := 1; parts <= 7; parts++ {
			schedule, err := BuildSchedule(target, parts, 8)
			require.NoError(t, err, "target=%s parts=%d", ts, parts)
			require.Len(t, schedule, parts)

			sum := decimal.Zero
			for _, chunk := range schedule {
				sum = sum.Add(chunk)
			}
			assert.True(t, sum.Equal(target), "target=%s parts=%d sum=%s", ts, parts, sum)
		}
	}
}

func TestBuildSchedule_SingleChunk(t *testing.T) {
	target := decimal.RequireFromString("42.5")
	schedule, err := BuildSchedule(target, 1, 8)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.True(t, schedule[0].Equal(target))
}

func TestBuildSchedule_InvalidInputs(t *testing.T) {
	_, err := BuildSchedule(decimal.NewFromInt(10), 0, 8)
	assert.Error(t, err)

	_, err = BuildSchedule(decimal.NewFromInt(10), -1, 8)
	assert.Error(t, err)

	_, err = BuildSchedule(decimal.Zero, 3, 8)
	assert.Error(t, err)

	_, err = BuildSchedule(decimal.NewFromInt(-5), 3, 8)
	assert.Error(t, err)
}

func TestBuildSchedule_RoundUpResidueKeepsLastPositive(t *testing.T) {
	// 2/3 at precision 0 rounds each chunk up to 1; the residue would push
	// the last chunk to zero, which the builder rejects.
	_, err := BuildSchedule(decimal.NewFromInt(2), 3, 0)
	assert.Error(t, err)
}
