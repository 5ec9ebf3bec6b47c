package model

import "fmt"

// EventType distinguishes row-level change kinds on the cell table.
type EventType int

const (
	// EventInsert reports a newly stored cell.
	EventInsert EventType = iota + 1
	// EventUpdate reports a new value for an already stored cell.
	EventUpdate
	// EventDelete reports a cleared cell. Record carries the old row.
	EventDelete
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventInsert:
		return "INSERT"
	case EventUpdate:
		return "UPDATE"
	case EventDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ChangeEvent is one row-level mutation on the cell table.
//
// Events fire for every grid and every writer, including the subscriber's
// own writes. Seq is the store's commit order.
type ChangeEvent struct {
	Type   EventType  `json:"type"`
	Record CellRecord `json:"record"`
	Seq    int64      `json:"seq"`
}
