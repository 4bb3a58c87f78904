package server

import "chronoscope/server/internal/render"

const protocolVersion = 1

// clientMessage is the single inbound envelope. Type selects which of the
// optional fields are meaningful.
type clientMessage struct {
	Ver    int      `json:"v,omitempty"`
	Type   string   `json:"type"`
	Epoch  *int     `json:"epoch,omitempty"`
	DX     float64  `json:"dx,omitempty"`
	DY     float64  `json:"dy,omitempty"`
	X      float64  `json:"x,omitempty"`
	Y      float64  `json:"y,omitempty"`
	Delta  float64  `json:"delta,omitempty"`
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	Action string   `json:"action,omitempty"`
	NodeID string   `json:"nodeId,omitempty"`
	Types  []string `json:"types,omitempty"`
	SentAt int64    `json:"sentAt,omitempty"`
}

type frameMessage struct {
	Ver   int          `json:"v"`
	Type  string       `json:"type"`
	Frame render.Frame `json:"frame"`
}

type graphMessage struct {
	Ver   int    `json:"v"`
	Type  string `json:"type"`
	Scene any    `json:"scene"`
}

type playbackMessage struct {
	Ver      int     `json:"v"`
	Type     string  `json:"type"`
	Epoch    int     `json:"epoch"`
	Progress float64 `json:"progress"`
	Playing  bool    `json:"playing"`
	MaxEpoch int     `json:"maxEpoch"`
}

type legendMessage struct {
	Ver     int                  `json:"v"`
	Type    string               `json:"type"`
	Entries []render.LegendEntry `json:"entries"`
}

type heartbeatMessage struct {
	Ver        int    `json:"v"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime,omitempty"`
}

type errorMessage struct {
	Ver     int    `json:"v"`
	Type    string `json:"type"`
	Message string `json:"message"`
}
