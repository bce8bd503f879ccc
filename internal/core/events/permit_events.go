package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePermitSubmitted     = "permit.submitted"
	EventTypePermitStatusChanged = "permit.status_changed"
	EventTypePermitDeleted       = "permit.deleted"
)

// PermitTypes lists every permit lifecycle event the broker bridge forwards.
var PermitTypes = []string{
	EventTypePermitSubmitted,
	EventTypePermitStatusChanged,
	EventTypePermitDeleted,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type PermitSubmittedEvent struct {
	BaseEvent
	PermitID string `json:"permitId"`
	UserID   string `json:"userId"`
	WPNumber string `json:"wpNumber"`
}

func NewPermitSubmittedEvent(permitID, userID, wpNumber string) *PermitSubmittedEvent {
	return &PermitSubmittedEvent{
		BaseEvent: newBase(EventTypePermitSubmitted, map[string]interface{}{
			"permitId": permitID,
			"userId":   userID,
			"wpNumber": wpNumber,
		}),
		PermitID: permitID,
		UserID:   userID,
		WPNumber: wpNumber,
	}
}

type PermitStatusChangedEvent struct {
	BaseEvent
	PermitID   string `json:"permitId"`
	OwnerID    string `json:"ownerId"`
	ActorID    string `json:"actorId"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
}

func NewPermitStatusChangedEvent(permitID, ownerID, actorID, from, to string) *PermitStatusChangedEvent {
	return &PermitStatusChangedEvent{
		BaseEvent: newBase(EventTypePermitStatusChanged, map[string]interface{}{
			"permitId":   permitID,
			"ownerId":    ownerID,
			"actorId":    actorID,
			"fromStatus": from,
			"toStatus":   to,
		}),
		PermitID:   permitID,
		OwnerID:    ownerID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
	}
}

type PermitDeletedEvent struct {
	BaseEvent
	PermitID string `json:"permitId"`
	ActorID  string `json:"actorId"`
}

func NewPermitDeletedEvent(permitID, actorID string) *PermitDeletedEvent {
	return &PermitDeletedEvent{
		BaseEvent: newBase(EventTypePermitDeleted, map[string]interface{}{
			"permitId": permitID,
			"actorId":  actorID,
		}),
		PermitID: permitID,
		ActorID:  actorID,
	}
}
