package models

import "strings"

const (
	RoleAdmin     = "admin"
	RoleDriver    = "driver"
	RoleAssistant = "assistant"
	RoleParent    = "parent"
)

type User struct {
	ID       ID     `json:"id" validate:"required"`
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	SchoolID ID     `json:"schoolId,omitempty"`
}

// NormalizedRole lowercases the backend's role ("PARENT", "Driver", ...).
func (u User) NormalizedRole() string {
	return NormalizeRole(u.Role)
}

func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleAdmin, RoleDriver, RoleAssistant, RoleParent:
		return role
	case "super_admin", "school_admin":
		return RoleAdmin
	default:
		return ""
	}
}

func (u User) Fields() map[string]string {
	return map[string]string{
		"id":       u.ID.String(),
		"name":     u.Name,
		"email":    u.Email,
		"phone":    u.Phone,
		"role":     u.Role,
		"schoolId": u.SchoolID.String(),
	}
}

type School struct {
	ID      ID     `json:"id" validate:"required"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (s School) Fields() map[string]string {
	return map[string]string{
		"id":      s.ID.String(),
		"name":    s.Name,
		"address": s.Address,
		"phone":   s.Phone,
	}
}
