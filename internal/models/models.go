package models

import (
	"strings"
	"time"
)

// RoleName enumerates the account roles.
type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleMember RoleName = "member"
)

// NormalizeRole maps arbitrary input to a known role, defaulting to member.
func NormalizeRole(raw string) RoleName {
	switch RoleName(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

// User represents an authenticated account.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `json:"-"`
	Role      RoleName  `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Event is a stored calendar event, optionally recurring via an RFC 5545
// RRULE anchored at StartTime. Instants are persisted in UTC; normalization
// happens in the calendar validator before an Event is ever created.
type Event struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string `gorm:"type:uuid;index:idx_events_user;not null" json:"user_id"`
	Title       string `gorm:"type:varchar(200);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	StartTime time.Time  `gorm:"index:idx_events_start;not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	IsAllDay  bool       `gorm:"not null;default:false" json:"is_all_day"`

	// Recurrence (RFC 5545 RRULE), e.g. "FREQ=DAILY;COUNT=5". Empty when
	// the event does not repeat.
	RecurrenceRule string `gorm:"type:text" json:"recurrence_rule,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Event) TableName() string {
	return "events"
}

// Recurs returns true if the event carries a recurrence rule.
func (e *Event) Recurs() bool {
	return e.RecurrenceRule != ""
}

// Duration returns the stored span for timed events, zero otherwise.
func (e *Event) Duration() time.Duration {
	if e.IsAllDay || e.EndTime == nil {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}
