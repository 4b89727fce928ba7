package models

import (
	"encoding/json"
	"time"
)

// Session holds what a browser would otherwise keep in local storage: the
// remote bearer token, the signed-in profile and display preferences.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  string `json:"user_id" gorm:"index"`
	Role    string `json:"role"`
	Token   string `json:"-"`
	Profile string `json:"-" gorm:"type:text"`

	MockData   bool   `json:"mock_data"`
	APIBaseURL string `json:"api_base_url"`
}

// SetProfile stores the user profile as JSON.
func (s *Session) SetProfile(u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	s.Profile = string(b)
	s.UserID = u.ID.String()
	s.Role = u.NormalizedRole()
	return nil
}

// User decodes the stored profile.
func (s *Session) User() (User, error) {
	var u User
	if s.Profile == "" {
		return u, nil
	}
	err := json.Unmarshal([]byte(s.Profile), &u)
	return u, err
}
