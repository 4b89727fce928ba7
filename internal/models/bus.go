// internal/models/bus.go
package models

type Bus struct {
	ID          ID     `json:"id" validate:"required"`
	Name        string `json:"name"`
	PlateNumber string `json:"plateNumber"`
	Capacity    int    `json:"capacity"`
	Route       string `json:"route"`
	DriverID    ID     `json:"driverId,omitempty"`
	AssistantID ID     `json:"assistantId,omitempty"`
	SchoolID    ID     `json:"schoolId,omitempty"`

	// Movement flags as reported by the backend; live state comes from devices.
	IsMoving bool `json:"isMoving"`
	IsActive bool `json:"isActive"`
}

func (b Bus) Fields() map[string]string {
	return map[string]string{
		"id":          b.ID.String(),
		"name":        b.Name,
		"plateNumber": b.PlateNumber,
		"route":       b.Route,
		"driverId":    b.DriverID.String(),
		"assistantId": b.AssistantID.String(),
		"schoolId":    b.SchoolID.String(),
	}
}
