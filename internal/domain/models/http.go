package models

// Requests for reporting HTTP endpoints. Defined in domain for
// consistency and reuse.

type LeaderboardRequest struct {
	Horizon string `query:"horizon" json:"horizon" default:"1h" validate:"oneof=15m 1h 4h 24h"`
	Limit   int    `query:"limit" json:"limit" default:"8" validate:"gte=1,lte=64"`
}

type ValidityRequest struct {
	ModelID string `query:"model_id" json:"model_id" validate:"required"`
}

type EnsembleRequest struct {
	Horizon    string `query:"horizon" json:"horizon" default:"1h" validate:"oneof=15m 1h 4h 24h"`
	Round      int    `query:"round" json:"round" default:"-1" validate:"gte=-1"`
	Membership string `query:"membership" json:"membership" default:"wide" validate:"oneof=wide strict"`
}

type CandlesRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	Horizon string `query:"horizon" json:"horizon" default:"1h" validate:"oneof=15m 1h 4h 24h"`
	N       int    `query:"n" json:"n" default:"600" validate:"gte=1,lte=5000"`
	From    string `query:"from" json:"from,omitempty"`
	To      string `query:"to" json:"to,omitempty"`
}

type RunBenchmarkRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Rounds int    `query:"rounds" json:"rounds" default:"60" validate:"gte=4,lte=2000"`
	Seed   uint32 `query:"seed" json:"seed" default:"1"`
}
