package capflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullyDilutedSharesUsesGreaterOfIssuedOrAuthorized(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	common, err := NewShareClass("Common", start, 10000000, 6000000)
	require.NoError(t, err)
	preferred, err := NewShareClass("Series A", start, 2000000, 2000000)
	require.NoError(t, err)

	total := FullyDilutedShares([]*ShareClass{common, preferred})
	assert.Equal(t, 12000000, total)
}

func TestOwnershipPercentageRoundsHalfUp4(t *testing.T) {
	pct := OwnershipPercentage(333333, 1000000)
	assert.InDelta(t, 0.3333, pct, 0.0001)
}

func TestBoardControlPercentage(t *testing.T) {
	assert.InDelta(t, 0.4, BoardControlPercentage(2, 5), 0.0001)
	assert.Equal(t, 0.0, BoardControlPercentage(1, 0))
}

func TestDilutionImpact(t *testing.T) {
	assert.InDelta(t, 0.2, DilutionImpact(4000000, 1000000), 0.0001)
}

func TestLiquidationWaterfallStacksBySeniority(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	seriesB, err := NewShareClass("Series B", start, 1000000, 1000000)
	require.NoError(t, err)
	seriesB.LiquidationPreference = 1.0
	seriesB.ParValue = 2.0
	seriesB.LiquidationSeniority = 2

	seriesA, err := NewShareClass("Series A", start, 2000000, 2000000)
	require.NoError(t, err)
	seriesA.LiquidationPreference = 1.0
	seriesA.ParValue = 1.0
	seriesA.LiquidationSeniority = 1

	common, err := NewShareClass("Common", start, 7000000, 7000000)
	require.NoError(t, err)
	common.LiquidationPreference = 0
	common.ParValue = 0
	common.LiquidationSeniority = 0

	proceeds := LiquidationWaterfall([]*ShareClass{common, seriesA, seriesB}, 3000000)

	// Series B's preference (1,000,000 * 2.0 = 2,000,000) is senior and paid
	// first, leaving only 1,000,000 for the remaining tiers.
	assert.InDelta(t, 2000000, proceeds["Series B"], 0.01)
	total := proceeds["Series B"] + proceeds["Series A"] + proceeds["Common"]
	assert.InDelta(t, 3000000, total, 0.01)
}

func TestLiquidationWaterfallNeverExceedsExitValue(t *testing.T) {
	start := mustDate(t, "2026-01-01")
	sc, err := NewShareClass("Series A", start, 1000000, 1000000)
	require.NoError(t, err)
	sc.LiquidationPreference = 5.0
	sc.ParValue = 1.0

	proceeds := LiquidationWaterfall([]*ShareClass{sc}, 1000000)
	assert.InDelta(t, 1000000, proceeds["Series A"], 0.01)
}
