package gamemath

import (
	"math/rand/v2"

	"github.com/spinforge/platform/internal/domain"
)

// ReplayMath re-plays a persisted round: each spin-class call serves the next
// recorded action's positions and win, cycling when the round is exhausted.
// Used by the replay endpoints; the engine never touches the RNG.
type ReplayMath struct {
	round   *domain.Round
	actions []domain.Action
	pos     int
}

// NewReplayMath builds a replay engine over a round's actions in ascending
// id order.
func NewReplayMath(round *domain.Round, actions []domain.Action) *ReplayMath {
	ordered := make([]domain.Action, len(actions))
	copy(ordered, actions)
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		if ordered[i].ID > ordered[j].ID {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	return &ReplayMath{round: round, actions: ordered}
}

func (m *ReplayMath) Settings() Settings {
	return Settings{
		Lines:        []int{int(m.round.Line)},
		BetCounters:  []int{int(m.round.BetCounter)},
		Reels:        []int{5},
		MaxFactor:    500,
		DefaultIndex: 0,
	}
}

func (m *ReplayMath) SetRand(*rand.Rand) {}

func (m *ReplayMath) next() (*Outcome, error) {
	if len(m.actions) == 0 {
		return &Outcome{}, nil
	}
	act := m.actions[m.pos%len(m.actions)]
	m.pos++
	stops, err := ParseStops(act.Stops)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Total: act.Win, Stops: stops}
	if act.Restore != nil {
		out.Restore = *act.Restore
	}
	// a recorded feature state replays as the same feature
	switch act.NextAct {
	case domain.KindRespin:
		out.Respins = 1
	case domain.KindFreeSpin:
		out.FreeInitial = 1
	case domain.KindFreeCollect:
		out.FreeLeft = 1
	}
	return out, nil
}

func (m *ReplayMath) Spin(Request) (*Outcome, error) { return m.next() }
func (m *ReplayMath) Respin() (*Outcome, error)      { return m.next() }
func (m *ReplayMath) FreeSpin() (*Outcome, error)    { return m.next() }

func (m *ReplayMath) Collect() (*Outcome, error) {
	var win int64
	if m.round.Win != nil {
		win = *m.round.Win
	}
	return &Outcome{Total: win}, nil
}

func (m *ReplayMath) Join() (*Outcome, error) { return &Outcome{}, nil }

func (m *ReplayMath) PostProcess(*Outcome) error { return nil }

func (m *ReplayMath) Restore(*domain.Round, []domain.Action) error { return nil }

func (m *ReplayMath) Close() (*Outcome, error) { return &Outcome{}, nil }
