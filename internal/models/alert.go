package models

import "time"

// PanicAlert is raised from the driver or assistant portal.
type PanicAlert struct {
	BusID     ID        `json:"busId" validate:"required"`
	RaisedBy  ID        `json:"raisedBy"`
	Message   string    `json:"message"`
	Latitude  Number    `json:"latitude"`
	Longitude Number    `json:"longitude"`
	RaisedAt  time.Time `json:"raisedAt"`
}

type SMSNotification struct {
	Recipients []string `json:"recipients" validate:"required,min=1,dive,required"`
	Message    string   `json:"message" validate:"required,max=480"`
}
