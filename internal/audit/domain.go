package audit

import (
	"errors"
	"time"
)

// Action is what happened to the resource.
type Action string

const (
	ActionView Action = "view"
	ActionDeny Action = "deny"
)

var (
	// ErrInvalidEvent indicates an event failed validation before write.
	ErrInvalidEvent = errors.New("audit: invalid event")
	// ErrWriteFailed indicates the durable write did not complete.
	ErrWriteFailed = errors.New("audit: write failed")
	// ErrDuplicateEvent indicates the event id was already recorded.
	ErrDuplicateEvent = errors.New("audit: duplicate event")
)

// Event is one append-only compliance record of a disclosure or denial.
// Sequence, PrevHash and Hash are assigned by the store and chain every event
// to its predecessor.
type Event struct {
	EventID        string    `json:"event_id" validate:"required,uuid"`
	ActorProfileID string    `json:"actor_profile_id" validate:"required,max=64"`
	ResourceType   string    `json:"resource_type" validate:"required,max=64"`
	ResourceID     string    `json:"resource_id" validate:"required,max=64"`
	Action         Action    `json:"action" validate:"required,oneof=view deny"`
	FieldsAccessed []string  `json:"fields_accessed" validate:"dive,required"`
	Justification  string    `json:"justification" validate:"required,max=500"`
	OccurredAt     time.Time `json:"occurred_at" validate:"required"`
	Sequence       int64     `json:"sequence"`
	PrevHash       string    `json:"prev_hash"`
	Hash           string    `json:"hash"`
}

// Filters select events for compliance review. Exactly one of the resource
// pair or ActorProfileID is expected.
type Filters struct {
	ResourceType   string
	ResourceID     string
	ActorProfileID string
	Page           int
	PageSize       int
}

// PagingInfo holds simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a page of events.
type Result struct {
	Events []Event    `json:"events"`
	Paging PagingInfo `json:"paging"`
}
