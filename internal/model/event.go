package model

import "time"

// Event is an audit record of a workflow mutation on an item.
type Event struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event kinds.
const (
	EventCreated     = "created"
	EventUpload      = "upload"
	EventAnalysis    = "analysis"
	EventApproval    = "approval"
	EventReopen      = "reopen"
	EventDisposition = "disposition"
)
