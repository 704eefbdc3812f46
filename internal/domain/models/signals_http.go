package models

// Requests for exit-signal HTTP endpoints. Defined in domain for consistency and reuse.

// PositionPayload mirrors PositionState for request binding.
type PositionPayload struct {
	PositionID       string  `json:"position_id" validate:"required"`
	Ticker           string  `json:"ticker" validate:"required"`
	Strategy         string  `json:"strategy" validate:"required"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
	MFE              float64 `json:"mfe"`
	MAE              float64 `json:"mae"`
	DaysHeld         int     `json:"days_held" validate:"gte=0"`
	EntryPrice       float64 `json:"entry_price" validate:"gt=0"`
	CurrentPrice     float64 `json:"current_price" validate:"gt=0"`
}

// State converts the payload to the domain position snapshot.
func (p PositionPayload) State() PositionState {
	return PositionState{
		PositionID:       p.PositionID,
		Ticker:           p.Ticker,
		Strategy:         p.Strategy,
		UnrealizedPnLPct: p.UnrealizedPnLPct,
		MFE:              p.MFE,
		MAE:              p.MAE,
		DaysHeld:         p.DaysHeld,
		EntryPrice:       p.EntryPrice,
		CurrentPrice:     p.CurrentPrice,
	}
}

type ExitSignalRequest struct {
	Position  PositionPayload    `json:"position" validate:"required"`
	TF        string             `query:"tf" json:"tf" default:"1d" validate:"oneof=1d 1w 1mo"`
	N         int                `query:"n" json:"n" default:"500" validate:"gte=1,lte=10000"`
	Overrides map[string]float64 `json:"overrides" validate:"omitempty,dive,gte=0,lte=1"`
}

type PortfolioRequest struct {
	Positions []PositionPayload  `json:"positions" validate:"required,min=1,max=200,dive"`
	TF        string             `query:"tf" json:"tf" default:"1d" validate:"oneof=1d 1w 1mo"`
	N         int                `query:"n" json:"n" default:"500" validate:"gte=1,lte=10000"`
	Overrides map[string]float64 `json:"overrides" validate:"omitempty,dive,gte=0,lte=1"`
}

type OptimizeRequest struct {
	Strategy string `query:"strategy" json:"strategy" validate:"required"`
	Limit    int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}
