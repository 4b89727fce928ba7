// internal/models/student.go
package models

type Student struct {
	ID       ID     `json:"id" validate:"required"`
	Name     string `json:"name"`
	Grade    string `json:"grade"`
	SchoolID ID     `json:"schoolId,omitempty"`
	BusID    ID     `json:"busId,omitempty"`
	ParentID ID     `json:"parentId,omitempty"`

	PickupLat Number `json:"pickupLatitude"`
	PickupLng Number `json:"pickupLongitude"`
}

func (s Student) Fields() map[string]string {
	return map[string]string{
		"id":       s.ID.String(),
		"name":     s.Name,
		"grade":    s.Grade,
		"schoolId": s.SchoolID.String(),
		"busId":    s.BusID.String(),
		"parentId": s.ParentID.String(),
	}
}
