package model

import "time"

// User is the internal, persistent account record.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Disabled    bool      `json:"disabled,omitempty"`
	Teams       Teams     `json:"teams"`
	Email       string    `json:"email"`
	Image       string    `json:"image"`
}

// IsAdmin reports whether the user holds the admin sentinel.
func (u User) IsAdmin() bool { return u.Teams.Admin }

// Clone returns a copy that shares no mutable state with u.
func (u User) Clone() User {
	u.Teams = u.Teams.Clone()
	return u
}

// Label is the name shown to other users.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// IdentityMapping links an external authentication subject to a User.
type IdentityMapping struct {
	ExternalID string    `json:"externalId"`
	UserID     string    `json:"userId"`
	Created    time.Time `json:"created"`
}
