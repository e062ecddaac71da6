package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformAccountID is the admin-owned account that collects commission.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User roles.
const (
	RoleClient     = "Client"
	RoleFreelancer = "Freelancer"
	RoleAdmin      = "Admin"
)

// XPPerCompletion is awarded to the worker on every approved task.
const XPPerCompletion = 100

type User struct {
	ID            uuid.UUID   `json:"id"`
	Role          string      `json:"role"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	PasswordHash  string      `json:"-"`
	Balance       int64       `json:"balance"`
	XP            int         `json:"xp"`
	Level         int         `json:"level"`
	CompletedJobs int         `json:"completed_jobs"`
	RatingSum     int         `json:"rating_sum"`
	RatingCount   int         `json:"rating_count"`
	IsPro         bool        `json:"is_pro"`
	IsVerified    bool        `json:"is_verified"`
	IsBanned      bool        `json:"is_banned"`
	BannedAt      *time.Time  `json:"banned_at,omitempty"`
	BanReason     string      `json:"ban_reason,omitempty"`
	SavedTasks    []uuid.UUID `json:"saved_tasks"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Rating returns the average review score, or 0 when unrated.
func (u *User) Rating() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return float64(u.RatingSum) / float64(u.RatingCount)
}

// IsAdmin reports whether u may arbitrate disputes and moderate.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// AddRating records a completed review and the XP that comes with it.
// The level rises once XP reaches level*1000.
func (u *User) AddRating(rating int) {
	u.CompletedJobs++
	u.XP += XPPerCompletion
	if u.XP >= u.Level*1000 {
		u.Level++
	}
	u.RatingSum += rating
	u.RatingCount++
}

// HasSaved reports whether taskID is in the user's saved list.
func (u *User) HasSaved(taskID uuid.UUID) bool {
	for _, id := range u.SavedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}
