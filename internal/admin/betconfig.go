package admin

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/gamemath"
)

func parseStakeList(s string) ([]int32, error) {
	parts := strings.Split(s, ",")
	out := make([]int32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, int32(n))
	}
	return out, nil
}

func renderStakeList(vals []int32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, ",")
}

func eurCents(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).IntPart()
}

// FilterPercent returns a copy of the percent record with bet and
// denomination entries the user's bounds cannot afford removed. MaxStake and
// MaxWin are EUR cents; zero means unbounded. A table that would empty out
// keeps its smallest entry so the session stays playable.
func FilterPercent(percent *domain.Percent, s gamemath.Settings, user *domain.User, rate decimal.Decimal) (*domain.Percent, error) {
	if percent.PossBets == nil || percent.Denomination == nil {
		return nil, domain.ErrValidation("percent record missing bets or denominations")
	}
	bets, err := parseStakeList(*percent.PossBets)
	if err != nil {
		return nil, err
	}
	denoms, err := parseStakeList(*percent.Denomination)
	if err != nil {
		return nil, err
	}
	if len(bets) == 0 || len(denoms) == 0 || len(s.Lines) == 0 {
		return nil, domain.ErrValidation("empty stake table")
	}

	maxLine := int64(s.Lines[len(s.Lines)-1])
	admissible := func(bet, denom int32) bool {
		stake := int64(bet) * int64(denom) * maxLine
		if user.MaxStake > 0 && eurCents(stake, rate) > user.MaxStake {
			return false
		}
		if user.MaxWin > 0 && s.MaxFactor > 0 && eurCents(stake*s.MaxFactor, rate) > user.MaxWin {
			return false
		}
		return true
	}

	keptBets := make([]int32, 0, len(bets))
	for _, b := range bets {
		if admissible(b, denoms[0]) {
			keptBets = append(keptBets, b)
		}
	}
	if len(keptBets) == 0 {
		keptBets = bets[:1]
	}
	keptDenoms := make([]int32, 0, len(denoms))
	for _, d := range denoms {
		if admissible(keptBets[0], d) {
			keptDenoms = append(keptDenoms, d)
		}
	}
	if len(keptDenoms) == 0 {
		keptDenoms = denoms[:1]
	}

	betStr := renderStakeList(keptBets)
	denomStr := renderStakeList(keptDenoms)
	return &domain.Percent{
		UserID:       percent.UserID,
		PossBets:     &betStr,
		Denomination: &denomStr,
		Percent:      percent.Percent,
	}, nil
}
