package domain

// PromoValue is the promo delta carried across wallet calls for one request.
type PromoValue struct {
	Out      int64  `json:"out"`
	OfferID  *int64 `json:"offerId,omitempty"`
	ChargeID *int64 `json:"chargeId,omitempty"`
}

// PromoStake is one stake override offered by a promo: the spin that consumes
// it plays with these inputs instead of the player's own. Multi is the win
// multiplier recorded on the funded round; zero means no override.
type PromoStake struct {
	Stake int64 `json:"stake"`
	Bet   int32 `json:"bet"`
	Line  int   `json:"line"`
	Denom int32 `json:"denom"`
	Multi int32 `json:"multi,omitempty"`
}

// PromoInfo is the active promo offer loaded at login: a number of funded
// spins with stake overrides.
type PromoInfo struct {
	OfferID int64        `json:"offerId"`
	Count   int          `json:"count"`
	Stakes  []PromoStake `json:"stakes"`
}

// PromoStats is the per-offer accounting row bumped when a RICH round
// collects.
type PromoStats struct {
	ID      int64 `json:"id"`
	OfferID int64 `json:"offerId"`
	UserID  int64 `json:"userId"`
	Spins   int   `json:"spins"`
	Win     int64 `json:"win"`
}
