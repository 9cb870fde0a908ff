// Package gamemath defines the math-engine contract consumed by the round
// coordinator, the request validator, and the take/win redraw policy.
package gamemath

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/spinforge/platform/internal/domain"
)

// Request is a normalized player input for one spin.
type Request struct {
	Bet        int32
	Line       int
	Denom      int32
	BetIndex   int
	BetCounter int
	Reels      int
}

// Stake is the wagered amount in cents.
func (r Request) Stake() int64 {
	return int64(r.Bet) * int64(r.Line) * int64(r.Denom) * int64(r.BetCounter)
}

// Settings are the math-side tables a validator is built from; bets and
// denominations come from the player's percent record instead.
type Settings struct {
	Lines        []int
	BetCounters  []int
	Reels        []int
	MaxFactor    int64
	DefaultIndex int
}

// Gain is one winning combination.
type Gain struct {
	Symbol int   `json:"symbol"`
	Count  int   `json:"count"`
	Line   int   `json:"line"`
	Amount int64 `json:"amount"`
}

// Outcome is a single math result. Feature flags decide which server event
// advances the round machine after the client act.
type Outcome struct {
	Total   int64  `json:"total"`
	Stops   []int  `json:"stops"`
	Gains   []Gain `json:"gains,omitempty"`
	Special string `json:"special,omitempty"`
	Restore string `json:"restore,omitempty"`

	Respins      int  `json:"respins,omitempty"`
	FreeInitial  int  `json:"freeInitial,omitempty"`
	FreeLeft     int  `json:"freeLeft,omitempty"`
	Drop         bool `json:"drop,omitempty"`
	Bonus        bool `json:"bonus,omitempty"`
	GambleEnd    bool `json:"gambleEnd,omitempty"`
	CollectStart bool `json:"collectStart,omitempty"`
}

// IsRespin reports whether this outcome opens a respin.
func (o *Outcome) IsRespin() bool { return o.Respins > 0 }

// IsFree reports whether this outcome starts a free-spin feature.
func (o *Outcome) IsFree() bool { return o.FreeInitial > 0 }

// ServerEvent returns the event that advances the machine past CLOSE for this
// outcome, or KindClose when nothing is pending.
func (o *Outcome) ServerEvent() domain.ActionKind {
	switch {
	case o.Bonus:
		return domain.KindBonusStart
	case o.Drop:
		return domain.KindDropStart
	case o.IsRespin():
		return domain.KindRespinStart
	case o.IsFree():
		return domain.KindFreeSpinStart
	case o.FreeLeft > 0:
		return domain.KindFreeCollectStart
	case o.GambleEnd:
		return domain.KindGambleEnd
	case o.CollectStart:
		return domain.KindCollectStart
	}
	return domain.KindClose
}

// StopsString renders stops as a comma list for persistence.
func (o *Outcome) StopsString() string {
	parts := make([]string, len(o.Stops))
	for i, s := range o.Stops {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// ParseStops decodes a persisted comma list of stops.
func ParseStops(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// SlotMath is the engine contract. Implementations are pure given their RNG;
// all persistent effects stay with the caller.
type SlotMath interface {
	Settings() Settings
	SetRand(r *rand.Rand)
	Spin(req Request) (*Outcome, error)
	Respin() (*Outcome, error)
	FreeSpin() (*Outcome, error)
	Collect() (*Outcome, error)
	Join() (*Outcome, error)
	PostProcess(o *Outcome) error
	Restore(round *domain.Round, actions []domain.Action) error
	Close() (*Outcome, error)
}
