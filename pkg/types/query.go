package types

import "time"

// SortDirection orders a sort column
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is one sort clause; direction defaults to ascending
type SortSpec struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction,omitempty"`
}

// CursorDirection selects which side of the cursor value to page toward
type CursorDirection string

const (
	CursorAfter  CursorDirection = "after"
	CursorBefore CursorDirection = "before"
)

// Cursor implements keyset pagination: a strict comparison on one column.
// Callers should use either a cursor or Offset, not both.
type Cursor struct {
	Field     string          `json:"field"`
	Value     any             `json:"value"`
	Direction CursorDirection `json:"direction"`
}

// TimeRange restricts results by creation time, inclusive on both ends
type TimeRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Query is the universal read request translated to dialect SQL
type Query struct {
	Collection string     `json:"collection"`
	Filter     Filter     `json:"filter,omitempty"`
	Sort       []SortSpec `json:"sort,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
	Cursor     *Cursor    `json:"cursor,omitempty"`
	TimeRange  *TimeRange `json:"timeRange,omitempty"`
}
