package profile

import (
	"time"
)

// Profile holds a user's regional and display settings. Exactly one per
// owner; display-only percentages never feed budget arithmetic.
type Profile struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`

	// Currency is an ISO 4217 code used for amount display.
	Currency   string `json:"currency"`
	DateFormat string `json:"dateFormat"`

	GSTPercentage float64 `json:"gstPercentage"`
	TDSPercentage float64 `json:"tdsPercentage"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
