// internal/models/manifest.go
package models

import "time"

const (
	SessionMorning = "MORNING"
	SessionEvening = "EVENING"

	StatusCheckedIn  = "CHECKED_IN"
	StatusCheckedOut = "CHECKED_OUT"
)

// Manifest records a student's check-in or check-out on a bus trip session.
type Manifest struct {
	ID          ID        `json:"id" validate:"required"`
	StudentID   ID        `json:"studentId"`
	BusID       ID        `json:"busId"`
	AssistantID ID        `json:"assistantId,omitempty"`
	Session     string    `json:"session" validate:"omitempty,oneof=MORNING EVENING"`
	Status      string    `json:"status" validate:"omitempty,oneof=CHECKED_IN CHECKED_OUT"`
	Timestamp   time.Time `json:"timestamp"`
	Latitude    Number    `json:"latitude"`
	Longitude   Number    `json:"longitude"`
}

func (m Manifest) Fields() map[string]string {
	return map[string]string{
		"id":          m.ID.String(),
		"studentId":   m.StudentID.String(),
		"busId":       m.BusID.String(),
		"assistantId": m.AssistantID.String(),
		"session":     m.Session,
		"status":      m.Status,
		"timestamp":   m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
}
