package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Reminder is a private, dated note. Only its owner sees it.
type Reminder struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Title        string     `json:"title" gorm:"not null" validate:"required,max=200"`
	Description  string     `json:"description,omitempty"`
	ReminderDate time.Time  `json:"reminder_date" gorm:"index;not null" validate:"required"`
	OwnerID      string     `json:"owner_id" gorm:"index;not null" validate:"required"`
	NotifiedAt   *time.Time `json:"notified_at,omitempty" gorm:"index"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (r *Reminder) Validate() error {
	return validate.Struct(r)
}

// Due reports whether the reminder should fire at now
func (r *Reminder) Due(now time.Time) bool {
	return r.NotifiedAt == nil && !r.ReminderDate.After(now)
}
