package gamemath

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
)

// Take/win policy bounds.
const (
	MinTake       = 80
	MaxTake       = 100
	MaxAttempts   = 100
	MinAllowedEUR = 25
)

// Policy wraps a math engine with the per-game take/win redraw: a Bernoulli
// trial with p=take/100 grants the configured win ceiling for this spin,
// otherwise only the EUR floor is allowed; results above the ceiling are
// redrawn up to MaxAttempts times. The policy can cap but never returns an
// outcome worth more than the first draw.
type Policy struct {
	inner  SlotMath
	take   int
	winEUR int64
	rate   decimal.Decimal
	rnd    *rand.Rand
}

// NewPolicy clamps take into [MinTake, MaxTake] and wraps inner. rate is the
// session currency's exchange rate to EUR.
func NewPolicy(inner SlotMath, take int, winEUR int64, rate decimal.Decimal, rnd *rand.Rand) *Policy {
	if take < MinTake {
		take = MinTake
	}
	if take > MaxTake {
		take = MaxTake
	}
	return &Policy{inner: inner, take: take, winEUR: winEUR, rate: rate, rnd: rnd}
}

func (p *Policy) ceilingCents() int64 {
	allowed := int64(0)
	if p.rnd.Float64() < float64(p.take)/100 {
		allowed = p.winEUR
	}
	if allowed < MinAllowedEUR {
		allowed = MinAllowedEUR
	}
	if p.rate.IsZero() {
		return allowed * 100
	}
	return decimal.NewFromInt(allowed).Div(p.rate).Mul(decimal.NewFromInt(100)).IntPart()
}

// better reports whether cand improves on best given the class of the first
// draw: respins shrink respins, free starts shrink the grant then the total,
// plain results prefer staying plain with a lower total.
func better(first, best, cand *Outcome) bool {
	switch {
	case first.IsRespin():
		if !cand.IsRespin() {
			return false
		}
		return cand.Respins < best.Respins
	case first.IsFree():
		if cand.IsRespin() {
			return false
		}
		if cand.FreeInitial != best.FreeInitial {
			return cand.FreeInitial < best.FreeInitial
		}
		return cand.Total < best.Total
	default:
		candPlain := !cand.IsRespin() && !cand.IsFree()
		bestPlain := !best.IsRespin() && !best.IsFree()
		if candPlain != bestPlain {
			return candPlain
		}
		return cand.Total < best.Total
	}
}

func (p *Policy) redraw(first *Outcome, next func() (*Outcome, error)) (*Outcome, error) {
	ceiling := p.ceilingCents()
	if first.Total <= ceiling {
		return first, nil
	}
	best := first
	for i := 0; i < MaxAttempts; i++ {
		cand, err := next()
		if err != nil {
			return nil, err
		}
		if better(first, best, cand) {
			best = cand
		}
		if best.Total <= ceiling {
			break
		}
	}
	if best.Total > first.Total {
		return first, nil
	}
	return best, nil
}

func (p *Policy) Settings() Settings    { return p.inner.Settings() }
func (p *Policy) SetRand(r *rand.Rand)  { p.inner.SetRand(r) }
func (p *Policy) Collect() (*Outcome, error) { return p.inner.Collect() }
func (p *Policy) Join() (*Outcome, error)    { return p.inner.Join() }
func (p *Policy) Close() (*Outcome, error)   { return p.inner.Close() }

func (p *Policy) PostProcess(o *Outcome) error { return p.inner.PostProcess(o) }

func (p *Policy) Restore(round *domain.Round, actions []domain.Action) error {
	return p.inner.Restore(round, actions)
}

func (p *Policy) Spin(req Request) (*Outcome, error) {
	first, err := p.inner.Spin(req)
	if err != nil {
		return nil, err
	}
	return p.redraw(first, func() (*Outcome, error) { return p.inner.Spin(req) })
}

func (p *Policy) Respin() (*Outcome, error) {
	first, err := p.inner.Respin()
	if err != nil {
		return nil, err
	}
	return p.redraw(first, p.inner.Respin)
}

func (p *Policy) FreeSpin() (*Outcome, error) {
	first, err := p.inner.FreeSpin()
	if err != nil {
		return nil, err
	}
	return p.redraw(first, p.inner.FreeSpin)
}
