package models

// Requests for the money-flow HTTP endpoints.

type FlowsRequest struct {
	Window string `query:"window" json:"window" default:"1d" validate:"oneof=1d 1w 1m"`
	Sort   string `query:"sort" json:"sort" default:"asc" validate:"oneof=asc desc none"`
}

type FiguresRequest struct {
	TZ string `query:"tz" json:"tz" validate:"omitempty,max=64"`
}

// FlowsResponse is the payload of GET /api/flows.
type FlowsResponse struct {
	Window      Window            `json:"window"`
	GeneratedAt string            `json:"generated_at"`
	Rows        []SectorAggregate `json:"rows"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Refreshing  bool   `json:"refreshing"`
	GeneratedAt string `json:"generated_at,omitempty"`
	Tickers     int    `json:"tickers"`
	LastError   string `json:"last_error,omitempty"`
}
