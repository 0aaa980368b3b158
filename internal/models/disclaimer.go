package models

import "time"

// DisclaimerRecord is the persisted outcome of the disclaimer gate.
// AcceptedAt is zero unless Accepted is true.
type DisclaimerRecord struct {
	Accepted   bool      `json:"accepted"`
	AcceptedAt time.Time `json:"accepted_at,omitempty"`
}

// Rejection describes what the host should do after the user declined the disclaimer.
type Rejection struct {
	Message     string `json:"message"`
	Leave       bool   `json:"leave"`
	RedirectURL string `json:"redirect_url,omitempty"`
}
