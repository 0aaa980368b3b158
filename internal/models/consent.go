package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ConsentStatus string

const (
	ConsentUnset      ConsentStatus = ""
	ConsentAccepted   ConsentStatus = "accepted"
	ConsentRejected   ConsentStatus = "rejected"
	ConsentCustomized ConsentStatus = "customized"
)

func (s ConsentStatus) String() string {
	if s == ConsentUnset {
		return "unset"
	}
	return string(s)
}

// Valid reports whether s is one of the statuses a saved record may carry.
func (s ConsentStatus) Valid() bool {
	switch s {
	case ConsentAccepted, ConsentRejected, ConsentCustomized:
		return true
	default:
		return false
	}
}

type CategoryID string

const (
	CategoryEssential   CategoryID = "essential"
	CategoryAnalytics   CategoryID = "analytics"
	CategoryPreferences CategoryID = "preferences"
)

// CategoryDefinition is static configuration, never persisted.
type CategoryDefinition struct {
	ID             CategoryID
	Required       bool
	DefaultEnabled bool
}

// CategoryDefinitions lists every category in display order.
var CategoryDefinitions = []CategoryDefinition{
	{ID: CategoryEssential, Required: true, DefaultEnabled: true},
	{ID: CategoryAnalytics},
	{ID: CategoryPreferences},
}

// LookupCategory returns the definition for id.
func LookupCategory(id CategoryID) (CategoryDefinition, bool) {
	for _, def := range CategoryDefinitions {
		if def.ID == id {
			return def, true
		}
	}
	return CategoryDefinition{}, false
}

// Categories is the resolved per-category preference set.
type Categories struct {
	Essential   bool `json:"essential"`
	Analytics   bool `json:"analytics"`
	Preferences bool `json:"preferences"`
}

// DefaultCategories returns the defaults from CategoryDefinitions.
func DefaultCategories() Categories {
	var c Categories
	for _, def := range CategoryDefinitions {
		c.Set(def.ID, def.DefaultEnabled || def.Required)
	}
	return c
}

// Enabled reports the value for id. Unknown ids are disabled.
func (c Categories) Enabled(id CategoryID) bool {
	switch id {
	case CategoryEssential:
		return c.Essential
	case CategoryAnalytics:
		return c.Analytics
	case CategoryPreferences:
		return c.Preferences
	default:
		return false
	}
}

// Set assigns the value for id and reports whether id is known.
func (c *Categories) Set(id CategoryID, enabled bool) bool {
	switch id {
	case CategoryEssential:
		c.Essential = enabled
	case CategoryAnalytics:
		c.Analytics = enabled
	case CategoryPreferences:
		c.Preferences = enabled
	default:
		return false
	}
	return true
}

// Normalize forces every required category on.
func (c Categories) Normalize() Categories {
	for _, def := range CategoryDefinitions {
		if def.Required {
			c.Set(def.ID, true)
		}
	}
	return c
}

// ConsentRecord is the persisted outcome of the cookie banner.
type ConsentRecord struct {
	Status     ConsentStatus `json:"status"`
	Categories Categories    `json:"preferences"`
	Timestamp  time.Time     `json:"-"`
}

// IsSet reports whether a record was ever saved.
func (r ConsentRecord) IsSet() bool {
	return r.Status != ConsentUnset
}

type consentWire struct {
	Status     ConsentStatus `json:"status"`
	Categories Categories    `json:"preferences"`
	Timestamp  string        `json:"timestamp"`
}

// MarshalJSON writes the browser-compatible shape with an ISO-8601 timestamp.
func (r ConsentRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(consentWire{
		Status:     r.Status,
		Categories: r.Categories,
		Timestamp:  r.Timestamp.UTC().Format(TimestampLayout),
	})
}

// UnmarshalJSON rejects records with an unknown status or timestamp.
func (r *ConsentRecord) UnmarshalJSON(data []byte) error {
	var w consentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Status.Valid() {
		return fmt.Errorf("unknown consent status %q", w.Status)
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("parse consent timestamp: %w", err)
	}
	r.Status = w.Status
	r.Categories = w.Categories.Normalize()
	r.Timestamp = ts
	return nil
}
