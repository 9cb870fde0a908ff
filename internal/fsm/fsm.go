// Package fsm implements the round state machine: a deterministic transition
// table over action kinds, split into client inputs and server events.
package fsm

import (
	"fmt"

	"github.com/spinforge/platform/internal/domain"
)

type kind = domain.ActionKind

var transitions = map[kind]map[kind]kind{
	domain.KindBet: {
		domain.KindBet:           domain.KindSpin,
		domain.KindBetLine:       domain.KindBet,
		domain.KindBetLineDenom:  domain.KindBet,
		domain.KindBetLineReels:  domain.KindBet,
		domain.KindFreeSpinStart: domain.KindFreeSpin,
		domain.KindDropStart:     domain.KindDrop,
	},
	domain.KindSpin: {
		domain.KindSpin: domain.KindClose,
	},
	domain.KindFreeSpin: {
		domain.KindFreeSpin: domain.KindClose,
	},
	domain.KindRespin: {
		domain.KindRespin: domain.KindClose,
	},
	domain.KindDrop: {
		domain.KindDrop: domain.KindClose,
	},
	domain.KindBonus: {
		domain.KindBonus: domain.KindBonus,
	},
	domain.KindCollect: {
		domain.KindCollect:     domain.KindBet,
		domain.KindGamblePlay:  domain.KindClose,
		domain.KindHalfCollect: domain.KindCollect,
	},
	domain.KindFreeCollect: {
		domain.KindFreeCollect: domain.KindFreeSpin,
		domain.KindGamblePlay:  domain.KindClose,
	},
	domain.KindGambleEnd: {
		domain.KindCollect: domain.KindBet,
	},
	domain.KindGambleFreeEnd: {
		domain.KindFreeCollect: domain.KindFreeSpin,
	},
	domain.KindClose: {
		domain.KindClose:            domain.KindBet,
		domain.KindCollectStart:     domain.KindCollect,
		domain.KindFreeCollectStart: domain.KindFreeCollect,
		domain.KindRespinStart:      domain.KindRespin,
		domain.KindGambleEnd:        domain.KindGambleEnd,
		domain.KindGambleFreeEnd:    domain.KindGambleFreeEnd,
		domain.KindFreeSpinStart:    domain.KindFreeSpin,
		domain.KindDropStart:        domain.KindDrop,
		domain.KindBonusStart:       domain.KindBonus,
	},
}

var clientActs = map[kind]struct{}{
	domain.KindBet:          {},
	domain.KindSpin:         {},
	domain.KindRespin:       {},
	domain.KindCollect:      {},
	domain.KindFreeCollect:  {},
	domain.KindGamblePlay:   {},
	domain.KindHalfCollect:  {},
	domain.KindFreeSpin:     {},
	domain.KindBetLine:      {},
	domain.KindBetLineDenom: {},
	domain.KindBetLineReels: {},
	domain.KindDrop:         {},
	domain.KindBonus:        {},
}

// Machine is a single round state machine. Not safe for concurrent use; it is
// owned by exactly one session actor.
type Machine struct {
	current kind
	input   kind
	prev    kind
	game    string
}

// New returns a machine anchored at BET for the given game.
func New(game string) *Machine {
	return &Machine{current: domain.KindBet, input: domain.KindBet, prev: domain.KindBet, game: game}
}

// Init sets the current state without transition checks. Used when restoring
// a resumed round from its last persisted action.
func (m *Machine) Init(state kind) { m.current = state }

// Reset re-anchors the machine to state, clearing the pending input. Used
// after a wallet failure to return the round to a re-spinnable state.
func (m *Machine) Reset(state kind) {
	m.current = state
	m.input = state
}

// Current returns the machine's current state.
func (m *Machine) Current() kind { return m.current }

// ClientAct applies a client input. Non-client kinds are rejected outright;
// missing edges fail with an illegal-state error and leave the state intact.
func (m *Machine) ClientAct(action kind) (kind, error) {
	if _, ok := clientActs[action]; !ok {
		return m.current, domain.ErrIllegalState(fmt.Sprintf("illegal client action %s - game %s", action, m.game))
	}
	m.input = action
	return m.step(action)
}

// ServerAct applies a server event.
func (m *Machine) ServerAct(action kind) (kind, error) {
	return m.step(action)
}

func (m *Machine) step(action kind) (kind, error) {
	tran, ok := transitions[m.current]
	if !ok {
		return m.current, domain.ErrIllegalState(fmt.Sprintf("no transitions from %s - game %s", m.current, m.game))
	}
	next, ok := tran[action]
	if !ok {
		return m.current, domain.ErrIllegalState(fmt.Sprintf("illegal transition from %s on %s - game %s", m.current, action, m.game))
	}
	m.prev = m.current
	m.current = next
	return m.current, nil
}
