package domain

import "time"

// ActionKind identifies a step inside a round. Client kinds arrive in player
// requests; *_START kinds and the gamble terminators are produced by the
// server when a spin outcome opens a feature.
type ActionKind string

const (
	KindBet          ActionKind = "BET"
	KindSpin         ActionKind = "SPIN"
	KindRespin       ActionKind = "RESPIN"
	KindFreeSpin     ActionKind = "FREE_SPIN"
	KindCollect      ActionKind = "COLLECT"
	KindFreeCollect  ActionKind = "FREE_COLLECT"
	KindHalfCollect  ActionKind = "HALF_COLLECT"
	KindGamblePlay   ActionKind = "GAMBLE_PLAY"
	KindBetLine      ActionKind = "BET_LINE"
	KindBetLineDenom ActionKind = "BET_LINE_DENOM"
	KindBetLineReels ActionKind = "BET_LINE_REELS"
	KindDrop         ActionKind = "DROP"
	KindBonus        ActionKind = "BONUS"

	KindClose            ActionKind = "CLOSE"
	KindCollectStart     ActionKind = "COLLECT_START"
	KindFreeCollectStart ActionKind = "FREE_COLLECT_START"
	KindRespinStart      ActionKind = "RESPIN_START"
	KindFreeSpinStart    ActionKind = "FREESPIN_START"
	KindDropStart        ActionKind = "DROP_START"
	KindBonusStart       ActionKind = "BONUS_START"
	KindGambleEnd        ActionKind = "GAMBLE_END"
	KindGambleFreeEnd    ActionKind = "GAMBLE_FREE_END"
)

// Announce maps an FSM resume state to the kind announced to the client:
// feature states are reported as the event that opens them.
func (k ActionKind) Announce() ActionKind {
	switch k {
	case KindRespin:
		return KindRespinStart
	case KindFreeSpin:
		return KindFreeSpinStart
	case KindFreeCollect:
		return KindFreeCollectStart
	case KindCollect:
		return KindCollectStart
	case KindDrop:
		return KindDropStart
	case KindBonus:
		return KindBonusStart
	}
	return k
}

// Action is a single persisted step of a round. NextAct is the FSM state
// after the action; the last action's NextAct is the resume state.
type Action struct {
	ID         int64      `json:"id"`
	RoundID    int64      `json:"roundId"`
	Amount     int64      `json:"amount"`
	Win        int64      `json:"win"`
	Kind       ActionKind `json:"kind"`
	NextAct    ActionKind `json:"nextAct"`
	ExternalID string     `json:"externalId"`
	TimeDone   time.Time  `json:"timeDone"`
	RemoteCode *int       `json:"remoteCode,omitempty"`
	ErrorInfo  *string    `json:"errorInfo,omitempty"`
	Stops      string     `json:"stops,omitempty"`
	Special    *string    `json:"special,omitempty"`
	Restore    *string    `json:"restore,omitempty"`
}
