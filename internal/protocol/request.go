// Package protocol defines the JSON shapes exchanged with game clients and
// the tournament server.
package protocol

import "encoding/json"

// Request kinds accepted on the handle endpoint.
const (
	ReqLogin          = "Login"
	ReqBetSpin        = "BetSpin"
	ReqReSpin         = "ReSpin"
	ReqFreeSpin       = "FreeSpin"
	ReqCollect        = "Collect"
	ReqHistory        = "History"
	ReqTournamentInfo = "TournamentInfo"
)

// PlayerRequest is the tagged request envelope submitted by a client.
// Fields beyond Kind are populated per variant.
type PlayerRequest struct {
	Kind string `json:"kind"`

	// BetSpin
	Bet        int32 `json:"bet,omitempty"`
	Line       int   `json:"line,omitempty"`
	Denom      int32 `json:"denom,omitempty"`
	BetCounter int   `json:"betCounter,omitempty"`

	// History
	Limit int `json:"limit,omitempty"`
}

// Mutating reports whether this request advances session state and therefore
// participates in the request-id nonce protocol.
func (r *PlayerRequest) Mutating() bool {
	switch r.Kind {
	case ReqBetSpin, ReqReSpin, ReqFreeSpin, ReqCollect:
		return true
	}
	return false
}

// LoginRequest opens a session. Mode selects the account-service variant.
type LoginRequest struct {
	UserName  string `json:"userName" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	Mode      string `json:"mode" validate:"required,oneof=Demo Real"`
	GameName  string `json:"gameName" validate:"required"`
	Country   string `json:"country,omitempty"`
	Language  string `json:"language,omitempty"`
}

// ParsePlayerRequest decodes raw into either a login or a player request.
func ParsePlayerRequest(raw json.RawMessage) (*PlayerRequest, error) {
	var req PlayerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
