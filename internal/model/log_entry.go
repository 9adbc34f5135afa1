package model

import "time"

// LogType discriminates audit log lines.
type LogType string

const (
	LogReservationCreated LogType = "created"
	LogReservationDeleted LogType = "deleted"
	LogBlackoutAdd        LogType = "blackoutAdd"
	LogBlackoutRemove     LogType = "blackoutRemove"
	LogSiteEventAdd       LogType = "siteEventAdd"
	LogSiteEventRemove    LogType = "siteEventRemove"
	LogHolidayAdd         LogType = "holidayAdd"
	LogHolidayRemove      LogType = "holidayRemove"
	LogUserAdd            LogType = "userAdd"
	LogUserUpdate         LogType = "userUpdate"
	LogIdentityLink       LogType = "identityLink"
)

// LogEntry is one line of the append-only audit log. Timestamp, IP,
// UserAgent and UserID describe the acting request; the remaining fields
// depend on Type.
type LogEntry struct {
	Type      LogType   `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	UserID    string    `json:"userId"`

	Date   string   `json:"date,omitempty"`
	Slot   string   `json:"slot,omitempty"`
	Team   *TeamRef `json:"team,omitempty"`
	Notes  string   `json:"notes,omitempty"`
	Reason string   `json:"reason,omitempty"`

	HolidayID string `json:"holidayId,omitempty"`

	TargetUserID string `json:"targetUserId,omitempty"`
	Name         string `json:"name,omitempty"`
	Teams        *Teams `json:"teams,omitempty"`
	Disabled     *bool  `json:"disabled,omitempty"`
	ExternalID   string `json:"externalId,omitempty"`
}
