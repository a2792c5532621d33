package capflow

// Cap-table math: ownership/voting/board-control percentages and the
// liquidation waterfall, grounded on engine/captable_calculators.py and
// models/captable.py. The waterfall adds real seniority stacking via
// ShareClass.LiquidationSeniority — see DESIGN.md Open Question 2 for why
// this is a genuine addition rather than a reproduction of the source.

import "sort"

// FullyDilutedShares mirrors calculate_total_shares_fully_diluted: the
// greater of total issued or total authorized shares across every class.
func FullyDilutedShares(classes []*ShareClass) int {
	issued, authorized := 0, 0
	for _, c := range classes {
		issued += c.SharesOutstanding
		authorized += c.SharesAuthorized
	}
	if authorized > issued {
		return authorized
	}
	return issued
}

// OwnershipPercentage mirrors calculate_basic_ownership /
// calculate_fully_diluted_ownership, rounded to 4 decimal places half-up.
func OwnershipPercentage(shares, fullyDilutedShares int) float64 {
	if fullyDilutedShares == 0 {
		return 0
	}
	return roundHalfUp4(float64(shares) / float64(fullyDilutedShares))
}

func roundHalfUp4(v float64) float64 {
	scaled := v*10000 + 0.5
	return float64(int64(scaled)) / 10000
}

// VotingPercentage mirrors calculate_voting_percentage: this shareholder's
// voting power over the total voting power across every shareholder.
func VotingPercentage(shares int, votingRightsPerShare float64, totalVotingPower float64) float64 {
	if totalVotingPower == 0 {
		return 0
	}
	return (float64(shares) * votingRightsPerShare) / totalVotingPower
}

// TotalVotingPower sums shares*voting_rights_per_share across every
// shareholder, given each shareholder's resolved class.
func TotalVotingPower(shareholders []*Shareholder, classByName map[string]*ShareClass) float64 {
	total := 0.0
	for _, sh := range shareholders {
		class, ok := classByName[sh.ShareClassName]
		rate := 1.0
		if ok {
			rate = class.VotingRightsPerShare
		}
		total += float64(sh.TotalShares) * rate
	}
	return total
}

// BoardControlPercentage mirrors calculate_board_control: board seats held
// over total board seats across the cap table.
func BoardControlPercentage(seats, totalSeats int) float64 {
	if totalSeats == 0 {
		return 0
	}
	return float64(seats) / float64(totalSeats)
}

// DilutionImpact mirrors calculate_dilution_impact: shares issued in a
// round over pre-round shares plus shares issued.
func DilutionImpact(preRoundShares, sharesIssued int) float64 {
	total := preRoundShares + sharesIssued
	if total == 0 {
		return 0
	}
	return float64(sharesIssued) / float64(total)
}

// LiquidationWaterfall distributes exitValue across share classes in
// seniority order (highest LiquidationSeniority first, ties broken by
// LiquidationPreference descending), each class taking its computed
// proceeds off the top before the remainder flows to the next tier. This
// real stacking is the Go-side improvement over the source described in
// DESIGN.md Open Question 2 — the Python original computes every class's
// proceeds independently with no ordering at all.
func LiquidationWaterfall(classes []*ShareClass, exitValue float64) map[string]float64 {
	ordered := append([]*ShareClass(nil), classes...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].LiquidationSeniority != ordered[j].LiquidationSeniority {
			return ordered[i].LiquidationSeniority > ordered[j].LiquidationSeniority
		}
		return ordered[i].LiquidationPreference > ordered[j].LiquidationPreference
	})

	totalShares := 0
	for _, c := range ordered {
		totalShares += c.SharesOutstanding
	}

	remaining := exitValue
	proceeds := make(map[string]float64, len(ordered))
	for _, c := range ordered {
		share := c.LiquidationProceeds(remaining, totalShares)
		if share > remaining {
			share = remaining
		}
		proceeds[c.ClassName] = share
		remaining -= share
	}
	return proceeds
}
