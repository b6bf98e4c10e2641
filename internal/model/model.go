// Package model defines the domain types used across the application.
package model

import "time"

// Channel represents a tracked YouTube channel.
type Channel struct {
	ID           string
	YouTubeID    string
	Name         string
	RSSURL       string
	YouTubeURL   string
	ThumbnailURL string
	LastChecked  *time.Time
	LastVideoID  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VideoStatus defines where a video sits in the triage lifecycle.
type VideoStatus string

// Supported video statuses.
const (
	StatusInbox     VideoStatus = "inbox"
	StatusSaved     VideoStatus = "saved"
	StatusDiscarded VideoStatus = "discarded"
)

// Valid reports whether s is a known status.
func (s VideoStatus) Valid() bool {
	switch s {
	case StatusInbox, StatusSaved, StatusDiscarded:
		return true
	}
	return false
}

// Video represents a single YouTube video in the triage store.
//
// ChannelID is nullable: a video outlives its channel, keeping the
// denormalized Channel* fields as its identity.
type Video struct {
	ID                  string
	YouTubeID           string
	ChannelID           *string
	ChannelYouTubeID    string
	ChannelName         string
	ChannelThumbnailURL string
	Title               string
	Description         string
	ThumbnailURL        string
	VideoURL            string
	PublishedAt         time.Time
	Status              VideoStatus
	SavedAt             *time.Time
	DiscardedAt         *time.Time
	IsShort             bool
	CreatedAt           time.Time
}

// BackupSchedule defines how often scheduled backups run.
type BackupSchedule string

// Supported backup schedules.
const (
	ScheduleDaily   BackupSchedule = "daily"
	ScheduleWeekly  BackupSchedule = "weekly"
	ScheduleMonthly BackupSchedule = "monthly"
)

// Valid reports whether s is a known schedule.
func (s BackupSchedule) Valid() bool {
	switch s {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	}
	return false
}

// BackupFormat defines what a backup run produces.
type BackupFormat string

// Supported backup formats.
const (
	FormatJSON     BackupFormat = "json"
	FormatDatabase BackupFormat = "database"
	FormatBoth     BackupFormat = "both"
)

// Valid reports whether f is a known format.
func (f BackupFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatDatabase, FormatBoth:
		return true
	}
	return false
}

// Settings is the application-wide configuration row. A single row
// exists; it is created with defaults on first read.
type Settings struct {
	HTTPTimeout         float64
	BackupEnabled       bool
	BackupSchedule      BackupSchedule
	BackupTime          string
	BackupFormat        BackupFormat
	BackupRetentionDays int
	LastBackupAt        *time.Time
	LastBackupStatus    string
	LastBackupError     string
	UpdatedAt           time.Time
}

// DefaultHTTPTimeout is the outbound request timeout in seconds used
// when settings are missing or invalid.
const DefaultHTTPTimeout = 10.0

// DefaultSettings returns the settings row created on first access.
func DefaultSettings() *Settings {
	return &Settings{
		HTTPTimeout:         DefaultHTTPTimeout,
		BackupEnabled:       false,
		BackupSchedule:      ScheduleDaily,
		BackupTime:          "02:00",
		BackupFormat:        FormatJSON,
		BackupRetentionDays: 30,
	}
}
