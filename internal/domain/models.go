package domain

import "time"

// Meter is one entry of the meter registry.
type Meter struct {
	ID        int64     `db:"meter_id" json:"meter_id"`
	Name      string    `db:"meter_name" json:"meter_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Reading is one row of meter data. Values is aligned with Columns; a nil
// entry is stored as NULL.
type Reading struct {
	MeterID int64
	Values  []any
}

// NewReading returns a reading with every column NULL.
func NewReading(meterID int64) Reading {
	return Reading{MeterID: meterID, Values: make([]any, len(Columns))}
}
