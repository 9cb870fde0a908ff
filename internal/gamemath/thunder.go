package gamemath

import (
	"fmt"
	"math/rand/v2"

	"github.com/spinforge/platform/internal/domain"
)

// ThunderExpress is a 5x3 line-pay engine used for demo sessions and as the
// default math class. Symbols 0..5 are line payers, 6 is wild, 7 is the
// scatter that grants free spins.
type ThunderExpress struct {
	rnd     *rand.Rand
	pending int64
	last    *Outcome
	free    *domain.FreeGame
	req     Request
}

const (
	thunderReels = 5
	thunderRows  = 3
	symWild      = 6
	symScatter   = 7
	freeGrant    = 10
)

var thunderStrips = [thunderReels][]int{
	{0, 1, 2, 3, 4, 5, 0, 1, 2, 6, 3, 4, 5, 7, 0, 1, 2, 3, 4, 5},
	{1, 2, 3, 4, 5, 0, 6, 1, 2, 3, 4, 5, 0, 7, 1, 2, 3, 4, 5, 0},
	{2, 3, 4, 5, 0, 1, 2, 3, 6, 4, 5, 0, 1, 7, 2, 3, 4, 5, 0, 1},
	{3, 4, 5, 0, 1, 2, 3, 4, 5, 6, 0, 1, 2, 7, 3, 4, 5, 0, 1, 2},
	{4, 5, 0, 1, 2, 3, 4, 5, 0, 6, 1, 2, 3, 7, 4, 5, 0, 1, 2, 3},
}

// paytable[symbol][count-3] is the bet multiplier for 3, 4, 5 of a kind.
var thunderPays = map[int][3]int64{
	0: {5, 10, 25},
	1: {5, 15, 40},
	2: {10, 25, 60},
	3: {10, 30, 80},
	4: {20, 50, 150},
	5: {25, 75, 250},
}

// Row picked on each reel per line, for the first five lines; further lines
// repeat the patterns.
var thunderLines = [5][thunderReels]int{
	{1, 1, 1, 1, 1},
	{0, 0, 0, 0, 0},
	{2, 2, 2, 2, 2},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 1, 2},
}

// OverKind is the gamble-style pick used by the bonus multiplier.
type OverKind string

const (
	OverShoot OverKind = "SHOOT"
	OverPull  OverKind = "PULL"
	OverBang  OverKind = "BANG"
)

// overMultiplier maps a pick to its multiplier. Unknown kinds are rejected
// explicitly; no wildcard fallthrough.
func overMultiplier(k OverKind) (int64, error) {
	switch k {
	case OverShoot:
		return 2, nil
	case OverPull:
		return 3, nil
	case OverBang:
		return 5, nil
	}
	return 0, fmt.Errorf("unknown over kind %q", k)
}

// NewThunderExpress returns the engine with a default RNG.
func NewThunderExpress() *ThunderExpress {
	return &ThunderExpress{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (m *ThunderExpress) Settings() Settings {
	return Settings{
		Lines:        []int{1, 3, 5},
		BetCounters:  []int{1, 2, 3},
		Reels:        []int{thunderReels},
		MaxFactor:    500,
		DefaultIndex: 1,
	}
}

func (m *ThunderExpress) SetRand(r *rand.Rand) { m.rnd = r }

func (m *ThunderExpress) draw(req Request) *Outcome {
	stops := make([]int, thunderReels)
	grid := [thunderReels][thunderRows]int{}
	for i := 0; i < thunderReels; i++ {
		strip := thunderStrips[i]
		stops[i] = m.rnd.IntN(len(strip))
		for r := 0; r < thunderRows; r++ {
			grid[i][r] = strip[(stops[i]+r)%len(strip)]
		}
	}

	out := &Outcome{Stops: stops}
	for li := 0; li < req.Line && li < len(thunderLines); li++ {
		pattern := thunderLines[li]
		first := grid[0][pattern[0]]
		if first == symWild {
			first = grid[1][pattern[1]]
		}
		if first == symScatter {
			continue
		}
		count := 0
		for i := 0; i < thunderReels; i++ {
			s := grid[i][pattern[i]]
			if s == first || s == symWild {
				count++
			} else {
				break
			}
		}
		if count >= 3 {
			pays, ok := thunderPays[first]
			if !ok {
				continue
			}
			amount := int64(req.Bet) * int64(req.Denom) * int64(req.BetCounter) * pays[count-3]
			out.Total += amount
			out.Gains = append(out.Gains, Gain{Symbol: first, Count: count, Line: li + 1, Amount: amount})
		}
	}

	scatters := 0
	for i := 0; i < thunderReels; i++ {
		for r := 0; r < thunderRows; r++ {
			if grid[i][r] == symScatter {
				scatters++
			}
		}
	}
	if scatters >= 3 {
		out.FreeInitial = freeGrant
	}
	return out
}

func (m *ThunderExpress) Spin(req Request) (*Outcome, error) {
	m.req = req
	out := m.draw(req)
	if out.IsFree() {
		sym := symScatter
		m.free = &domain.FreeGame{Left: out.FreeInitial, Initial: out.FreeInitial, Symbol: &sym, Category: 1}
		out.Restore = m.free.Encode()
	} else {
		m.free = nil
	}
	m.pending = out.Total
	m.last = out
	return out, nil
}

func (m *ThunderExpress) Respin() (*Outcome, error) {
	if m.last == nil {
		return nil, domain.ErrIllegalState("respin without a spin")
	}
	out := m.draw(m.req)
	out.Respins = 0
	m.pending += out.Total
	m.last = out
	return out, nil
}

func (m *ThunderExpress) FreeSpin() (*Outcome, error) {
	if m.free == nil || m.free.Left == 0 {
		return nil, domain.ErrIllegalState("free spin without free games")
	}
	out := m.draw(m.req)
	m.free.Left--
	m.free.Done++
	m.free.TotalWin += out.Total
	// retriggers extend the same feature
	if out.FreeInitial > 0 {
		m.free.Left += out.FreeInitial
		out.FreeInitial = 0
	}
	out.FreeLeft = m.free.Left
	out.Restore = m.free.Encode()
	m.pending += out.Total
	m.last = out
	return out, nil
}

func (m *ThunderExpress) Collect() (*Outcome, error) {
	total := m.pending
	if m.free != nil && m.free.Left == 0 {
		total = m.free.TotalWin
		m.free = nil
	}
	out := &Outcome{Total: total}
	if m.free != nil {
		out.FreeLeft = m.free.Left
		out.Restore = m.free.Encode()
	}
	m.pending = 0
	return out, nil
}

func (m *ThunderExpress) Join() (*Outcome, error) {
	out := &Outcome{}
	if m.last != nil {
		out = &Outcome{Total: m.last.Total, Stops: m.last.Stops, Gains: m.last.Gains}
	}
	if m.free != nil {
		out.FreeLeft = m.free.Left
		out.Restore = m.free.Encode()
	}
	return out, nil
}

func (m *ThunderExpress) PostProcess(o *Outcome) error {
	if !o.Bonus {
		return nil
	}
	kinds := []OverKind{OverShoot, OverPull, OverBang}
	mult, err := overMultiplier(kinds[m.rnd.IntN(len(kinds))])
	if err != nil {
		return err
	}
	o.Total *= mult
	return nil
}

func (m *ThunderExpress) Restore(round *domain.Round, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	last := actions[0]
	stops, err := ParseStops(last.Stops)
	if err != nil {
		return fmt.Errorf("restore stops: %w", err)
	}
	m.last = &Outcome{Total: last.Win, Stops: stops}
	m.pending = last.Win
	if last.Restore != nil && *last.Restore != "" {
		fg, err := domain.ParseFreeGame(*last.Restore)
		if err != nil {
			return fmt.Errorf("restore free game: %w", err)
		}
		m.free = &fg
	}
	return nil
}

func (m *ThunderExpress) Close() (*Outcome, error) {
	out := &Outcome{Total: m.pending}
	m.pending = 0
	m.free = nil
	m.last = nil
	return out, nil
}
