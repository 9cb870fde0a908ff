package gamemath

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/spinforge/platform/internal/domain"
)

// Validator normalizes player inputs against the tables allowed for this
// user: out-of-range values are clamped, unknown values snapped to an edge.
type Validator struct {
	Lines        []int
	Bets         []int32
	Denomination []int32
	Reels        []int
	BetCounters  []int
}

// NewValidator builds a validator from the user's percent record and the
// math settings. Every table must be non-empty.
func NewValidator(percent *domain.Percent, s Settings) (*Validator, error) {
	if percent.PossBets == nil || percent.Denomination == nil {
		return nil, domain.ErrValidation("percent record missing bets or denominations")
	}
	bets, err := parseInt32List(*percent.PossBets)
	if err != nil {
		return nil, fmt.Errorf("parse possible bets: %w", err)
	}
	denoms, err := parseInt32List(*percent.Denomination)
	if err != nil {
		return nil, fmt.Errorf("parse denominations: %w", err)
	}
	if len(s.Lines) == 0 || len(bets) == 0 || len(denoms) == 0 || len(s.BetCounters) == 0 || len(s.Reels) == 0 {
		return nil, domain.ErrValidation("empty validator table")
	}
	return &Validator{
		Lines:        s.Lines,
		Bets:         bets,
		Denomination: denoms,
		Reels:        s.Reels,
		BetCounters:  s.BetCounters,
	}, nil
}

func parseInt32List(s string) ([]int32, error) {
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

// correctVal returns v when it is a member of values, otherwise the first
// element when it exceeds v, else the last.
func correctVal[T cmp.Ordered](values []T, v T) T {
	for _, e := range values {
		if e == v {
			return v
		}
	}
	if values[0] > v {
		return values[0]
	}
	return values[len(values)-1]
}

func indexOf[T comparable](values []T, v T) int {
	for i, e := range values {
		if e == v {
			return i
		}
	}
	return 0
}

// Correct normalizes every field of req in place and recomputes BetIndex.
func (v *Validator) Correct(req *Request) {
	req.Line = correctVal(v.Lines, req.Line)
	req.Denom = correctVal(v.Denomination, req.Denom)
	req.Bet = correctVal(v.Bets, req.Bet)
	req.Reels = correctVal(v.Reels, req.Reels)
	req.BetCounter = correctVal(v.BetCounters, req.BetCounter)
	req.BetIndex = indexOf(v.Bets, req.Bet)
}

// BetIndex returns the position of bet in the bet table, or 0 when absent.
func (v *Validator) BetIndex(bet int32) int { return indexOf(v.Bets, bet) }

// MaxLine returns the highest line count.
func (v *Validator) MaxLine() int { return v.Lines[len(v.Lines)-1] }

// MinBetCounter returns the lowest bet counter.
func (v *Validator) MinBetCounter() int { return v.BetCounters[0] }

// MinReels returns the lowest reel count.
func (v *Validator) MinReels() int { return v.Reels[0] }

// DefaultRequest picks the entry request. Denomination-major game configs
// (more than two denominations) index into denominations with the lowest
// bet; bet-major configs index into bets with the lowest denomination.
func (v *Validator) DefaultRequest(defaultIndex int, defaultLine *int) Request {
	var bet int32
	var denom int32
	if len(v.Denomination) > 2 {
		bet = v.Bets[0]
		denom = v.Denomination[min(defaultIndex, len(v.Denomination)-1)]
	} else {
		bet = v.Bets[min(defaultIndex, len(v.Bets)-1)]
		denom = v.Denomination[0]
	}
	line := v.Lines[len(v.Lines)-1]
	if defaultLine != nil {
		line = v.Lines[*defaultLine]
	}
	return Request{
		Bet:        bet,
		Line:       line,
		Denom:      denom,
		BetIndex:   indexOf(v.Bets, bet),
		BetCounter: 1,
		Reels:      v.Reels[len(v.Reels)-1],
	}
}

// PromoRequest picks the first promo stake covering the target stake, or the
// last one when none does. The picked stake comes back alongside the request
// so the caller can apply its overrides beyond the bet inputs.
func (v *Validator) PromoRequest(stake int64, stakes []domain.PromoStake) (Request, domain.PromoStake, error) {
	if len(stakes) == 0 {
		return Request{}, domain.PromoStake{}, domain.ErrValidation("empty promo stakes")
	}
	pick := stakes[len(stakes)-1]
	for _, s := range stakes {
		if s.Stake >= stake {
			pick = s
			break
		}
	}
	return Request{
		Bet:        pick.Bet,
		Line:       pick.Line,
		Denom:      pick.Denom,
		BetIndex:   indexOf(v.Bets, pick.Bet),
		BetCounter: v.MinBetCounter(),
		Reels:      v.MinReels(),
	}, pick, nil
}

// FromRound rebuilds the request a resumed round was playing with.
func (v *Validator) FromRound(r *domain.Round, reelsDefault int) Request {
	reels := reelsDefault
	if r.Reels != nil {
		reels = int(*r.Reels)
	}
	return Request{
		Bet:        r.Bet,
		Line:       int(r.Line),
		Denom:      r.Denom,
		BetIndex:   indexOf(v.Bets, r.Bet),
		BetCounter: int(r.BetCounter),
		Reels:      reels,
	}
}
