// Package order models immutable snapshots of past orders.
package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyOrder = errors.New("order must contain at least one line item")

// LineItem is one (restaurant, item) pair as it was at order time.
type LineItem struct {
	Restaurant string  `json:"restaurant"`
	Item       string  `json:"item"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	TotalFat   float64 `json:"totalFat"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// Units returns the effective quantity. Non-positive quantities count once.
func (l LineItem) Units() int {
	if l.Quantity <= 0 {
		return 1
	}
	return l.Quantity
}

// Snapshot is a past order. Owned by the order-history store and never mutated.
type Snapshot struct {
	ID       uuid.UUID  `json:"id"`
	UserID   uuid.UUID  `json:"userId"`
	PlacedAt time.Time  `json:"placedAt"`
	Lines    []LineItem `json:"lines"`
}

// Validate checks a snapshot before it is recorded.
func (s Snapshot) Validate() error {
	if len(s.Lines) == 0 {
		return ErrEmptyOrder
	}
	return nil
}
