package models

import "time"

// TimeLayout is the lexical format of every date string crossing the API
// boundary.
const TimeLayout = "2006-01-02 15:04"

// ResultEntry is one row of an activity report. Every entry of one
// response carries an identical key set in Values; the placeholder pass
// guarantees that before any count is written. Values are float64 so
// merged baseline averages share the map with the integral raw counts.
type ResultEntry struct {
	Label  string             `json:"label"`
	Kind   ItemKind           `json:"type"`
	Values map[string]float64 `json:"values"`
}

// Bin is one sub-interval of a timeline report's date range.
type Bin struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// TimelinePoint is one flattened (item, bin) cell of a timeline report.
type TimelinePoint struct {
	Label string   `json:"label"`
	Kind  ItemKind `json:"type"`
	Date  string   `json:"date"`
	Count int64    `json:"count"`
}
