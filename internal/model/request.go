package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceRequest is a requester's recorded intent. Reference is the public
// identifier handed back to the requester; the serial ID stays internal.
// AssignedProviderID is set at most once and never reassigned.
type ServiceRequest struct {
	ID        int64     `json:"-"`
	Reference uuid.UUID `json:"reference"`
	ActorID   int64     `json:"actor_id"`
	Category  string    `json:"category"`
	Division  string    `json:"division,omitempty"`
	Phone     string    `json:"phone"`
	Location  GeoPoint  `json:"location"`

	AssignedProviderID *int64    `json:"assigned_provider_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// UsageStats is the process-wide counter row: distinct requesters who ever
// filed a request, and total requests overall.
type UsageStats struct {
	TotalRequesters int64 `json:"total_requesters"`
	TotalRequests   int64 `json:"total_requests"`
}
