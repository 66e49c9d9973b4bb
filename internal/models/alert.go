package models

import (
	"encoding/json"
	"time"
)

// AlertCategory classifies an alert condition.
type AlertCategory string

const (
	CategoryLowStock     AlertCategory = "LOW_STOCK"
	CategoryOutOfStock   AlertCategory = "OUT_OF_STOCK"
	CategoryExpired      AlertCategory = "EXPIRED"
	CategoryExpiringSoon AlertCategory = "EXPIRING_SOON"
)

// IsExpiration reports whether the category is one of the expiration conditions.
func (c AlertCategory) IsExpiration() bool {
	return c == CategoryExpired || c == CategoryExpiringSoon
}

// AlertEvent is a composed alert delivered to connected clients. It is never
// mutated after creation except for the client-side read flag, and it is not
// persisted anywhere on the server.
type AlertEvent struct {
	ID        string        `json:"id"`
	Category  AlertCategory `json:"category"`
	Subject   []Product     `json:"subject"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
	Read      bool          `json:"read"`
	Grouped   bool          `json:"grouped"`
}

// MarshalJSON serializes Subject as a single object for ungrouped events and
// as an array for grouped ones, matching what clients expect.
func (e AlertEvent) MarshalJSON() ([]byte, error) {
	type Alias AlertEvent
	if !e.Grouped && len(e.Subject) == 1 {
		return json.Marshal(&struct {
			Subject Product `json:"subject"`
			*Alias
		}{
			Subject: e.Subject[0],
			Alias:   (*Alias)(&e),
		})
	}
	return json.Marshal((*Alias)(&e))
}
