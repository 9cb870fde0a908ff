package domain

import "time"

// EventType enumerates the domain event types published to the broker.
type EventType string

const (
	EventRoundClosed    EventType = "game.round.closed"
	EventSessionStopped EventType = "game.session.stopped"
)

// TopicRounds is the topic carrying round lifecycle events.
const TopicRounds = "rounds.closed"

// RoundClosedEvent is published when a round reaches its close time.
type RoundClosedEvent struct {
	Type      EventType   `json:"type"`
	RoundID   int64       `json:"roundId"`
	CommonID  int64       `json:"commonId"`
	GameID    int64       `json:"gameId"`
	UserID    int64       `json:"userId"`
	Stake     int64       `json:"stake"`
	Win       int64       `json:"win"`
	Status    RoundStatus `json:"status"`
	Detail    RoundDetail `json:"detail"`
	ClosedAt  time.Time   `json:"closedAt"`
	EventTime time.Time   `json:"eventTime"`
}

// NewRoundClosedEvent builds the round-close event for a just-closed round.
func NewRoundClosedEvent(r *Round) RoundClosedEvent {
	var win int64
	if r.Win != nil {
		win = *r.Win
	}
	var closedAt time.Time
	if r.CloseTime != nil {
		closedAt = *r.CloseTime
	}
	return RoundClosedEvent{
		Type:      EventRoundClosed,
		RoundID:   r.ID,
		CommonID:  r.CommonID,
		GameID:    r.GameID,
		UserID:    r.UserID,
		Stake:     r.Stake,
		Win:       win,
		Status:    r.Status,
		Detail:    r.Detail,
		ClosedAt:  closedAt,
		EventTime: time.Now(),
	}
}
