package api

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"ytwatch/internal/model"
)

var backupTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

type settingsResponse struct {
	HTTPTimeout         float64    `json:"http_timeout"`
	BackupEnabled       bool       `json:"backup_enabled"`
	BackupSchedule      string     `json:"backup_schedule"`
	BackupTime          string     `json:"backup_time"`
	BackupFormat        string     `json:"backup_format"`
	BackupRetentionDays int        `json:"backup_retention_days"`
	LastBackupAt        *time.Time `json:"last_backup_at"`
	LastBackupStatus    string     `json:"last_backup_status,omitempty"`
	LastBackupError     string     `json:"last_backup_error,omitempty"`
}

func settingsResponseFrom(set *model.Settings) settingsResponse {
	return settingsResponse{
		HTTPTimeout:         set.HTTPTimeout,
		BackupEnabled:       set.BackupEnabled,
		BackupSchedule:      string(set.BackupSchedule),
		BackupTime:          set.BackupTime,
		BackupFormat:        string(set.BackupFormat),
		BackupRetentionDays: set.BackupRetentionDays,
		LastBackupAt:        set.LastBackupAt,
		LastBackupStatus:    set.LastBackupStatus,
		LastBackupError:     set.LastBackupError,
	}
}

// settingsUpdate is a partial update: only present fields are applied.
type settingsUpdate struct {
	HTTPTimeout         *float64 `json:"http_timeout"`
	BackupEnabled       *bool    `json:"backup_enabled"`
	BackupSchedule      *string  `json:"backup_schedule"`
	BackupTime          *string  `json:"backup_time"`
	BackupFormat        *string  `json:"backup_format"`
	BackupRetentionDays *int     `json:"backup_retention_days"`
}

// apply overlays the update onto set, validating each provided field.
func (u *settingsUpdate) apply(set *model.Settings) error {
	if u.HTTPTimeout != nil {
		if *u.HTTPTimeout < 1 || *u.HTTPTimeout > 300 {
			return fmt.Errorf("http_timeout must be between 1 and 300 seconds")
		}
		set.HTTPTimeout = *u.HTTPTimeout
	}
	if u.BackupEnabled != nil {
		set.BackupEnabled = *u.BackupEnabled
	}
	if u.BackupSchedule != nil {
		sched := model.BackupSchedule(*u.BackupSchedule)
		if !sched.Valid() {
			return fmt.Errorf("backup_schedule must be daily, weekly or monthly")
		}
		set.BackupSchedule = sched
	}
	if u.BackupTime != nil {
		if !backupTimeRe.MatchString(*u.BackupTime) {
			return fmt.Errorf("backup_time must be HH:MM in 24-hour format")
		}
		set.BackupTime = *u.BackupTime
	}
	if u.BackupFormat != nil {
		format := model.BackupFormat(*u.BackupFormat)
		if !format.Valid() {
			return fmt.Errorf("backup_format must be json, database or both")
		}
		set.BackupFormat = format
	}
	if u.BackupRetentionDays != nil {
		if *u.BackupRetentionDays < 1 || *u.BackupRetentionDays > 365 {
			return fmt.Errorf("backup_retention_days must be between 1 and 365")
		}
		set.BackupRetentionDays = *u.BackupRetentionDays
	}
	return nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settingsResponseFrom(set))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd settingsUpdate
	if err := decodeBody(r, &upd); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	set, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := upd.apply(set); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.store.UpdateSettings(r.Context(), set); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Settings are saved at this point; a reschedule failure must not
	// fail the request.
	if s.resched != nil {
		if err := s.resched.Reschedule(r.Context()); err != nil {
			s.log.Error("reschedule backups", "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, settingsResponseFrom(set))
}
