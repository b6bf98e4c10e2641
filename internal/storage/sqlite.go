package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"ytwatch/internal/model"
	"ytwatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements Store against either the base connection or a
// transaction.
type queries struct {
	db dbtx
}

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	queries
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: WAL still serializes writers, and :memory:
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{queries: queries{db: db}, db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InTx runs fn against a transactional Store. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *SQLite) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// BackupTo writes a consistent copy of the database to path.
func (s *SQLite) BackupTo(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel, detaching its videos first, in one
// transaction.
func (s *SQLite) DeleteChannel(ctx context.Context, id string) error {
	return s.InTx(ctx, func(st Store) error {
		return st.DeleteChannel(ctx, id)
	})
}

// CreateChannel inserts a new channel and populates its ID and timestamps.
// A duplicate external channel ID reports ErrAlreadyExists.
func (q *queries) CreateChannel(ctx context.Context, ch *model.Channel) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO channels (id, youtube_channel_id, name, rss_url, youtube_url, thumbnail_url,
		                       last_checked, last_video_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.YouTubeID, ch.Name, ch.RSSURL, ch.YouTubeURL, nullIfEmpty(ch.ThumbnailURL),
		formatTimePtr(ch.LastChecked), ch.LastVideoID, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("channel %s: %w", ch.YouTubeID, ErrAlreadyExists)
		}
		return fmt.Errorf("insert channel: %w", err)
	}
	ch.CreatedAt, _ = time.Parse(timeLayout, now)
	ch.UpdatedAt = ch.CreatedAt
	return nil
}

// GetChannel returns a single channel by its internal ID.
func (q *queries) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	row := q.db.QueryRowContext(ctx, selectChannel+` WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return ch, err
}

// GetChannelByYouTubeID returns a single channel by its external ID.
func (q *queries) GetChannelByYouTubeID(ctx context.Context, youtubeID string) (*model.Channel, error) {
	row := q.db.QueryRowContext(ctx, selectChannel+` WHERE youtube_channel_id = ?`, youtubeID)
	ch, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("channel %s: %w", youtubeID, ErrNotFound)
	}
	return ch, err
}

// ListChannels returns all tracked channels, newest first.
func (q *queries) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rows, err := q.db.QueryContext(ctx, selectChannel+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// UpdateChannel persists changes to an existing channel.
func (q *queries) UpdateChannel(ctx context.Context, ch *model.Channel) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := q.db.ExecContext(ctx,
		`UPDATE channels SET name = ?, rss_url = ?, youtube_url = ?, thumbnail_url = ?,
		        last_checked = ?, last_video_id = ?, updated_at = ?
		 WHERE id = ?`,
		ch.Name, ch.RSSURL, ch.YouTubeURL, nullIfEmpty(ch.ThumbnailURL),
		formatTimePtr(ch.LastChecked), ch.LastVideoID, now, ch.ID,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel %s: %w", ch.ID, ErrNotFound)
	}
	ch.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// DeleteChannel removes a channel. Its videos keep their denormalized
// channel fields and lose only the internal reference.
func (q *queries) DeleteChannel(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE videos SET channel_id = NULL WHERE channel_id = ?`, id); err != nil {
		return fmt.Errorf("detach videos: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateVideo inserts a new video and populates its ID and CreatedAt.
// A duplicate external video ID reports ErrAlreadyExists.
func (q *queries) CreateVideo(ctx context.Context, v *model.Video) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = model.StatusInbox
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO videos (id, youtube_video_id, channel_id, channel_youtube_id, channel_name,
		                     channel_thumbnail_url, title, description, thumbnail_url, video_url,
		                     published_at, status, saved_at, discarded_at, is_short, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.YouTubeID, v.ChannelID, v.ChannelYouTubeID, v.ChannelName,
		nullIfEmpty(v.ChannelThumbnailURL), v.Title, v.Description, nullIfEmpty(v.ThumbnailURL), v.VideoURL,
		v.PublishedAt.UTC().Format(timeLayout), string(v.Status),
		formatTimePtr(v.SavedAt), formatTimePtr(v.DiscardedAt), boolToInt(v.IsShort), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("video %s: %w", v.YouTubeID, ErrAlreadyExists)
		}
		return fmt.Errorf("insert video: %w", err)
	}
	v.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetVideo returns a single video by its internal ID.
func (q *queries) GetVideo(ctx context.Context, id string) (*model.Video, error) {
	row := q.db.QueryRowContext(ctx, selectVideo+` WHERE id = ?`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return v, err
}

// GetVideoByYouTubeID returns a single video by its external ID.
func (q *queries) GetVideoByYouTubeID(ctx context.Context, youtubeID string) (*model.Video, error) {
	row := q.db.QueryRowContext(ctx, selectVideo+` WHERE youtube_video_id = ?`, youtubeID)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video %s: %w", youtubeID, ErrNotFound)
	}
	return v, err
}

// VideoExists reports whether a video with the given external ID is stored.
func (q *queries) VideoExists(ctx context.Context, youtubeID string) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM videos WHERE youtube_video_id = ?`, youtubeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check video exists: %w", err)
	}
	return count > 0, nil
}

// ListVideos returns videos matching the filter, newest first.
func (q *queries) ListVideos(ctx context.Context, f VideoFilter) ([]model.Video, error) {
	where, args := buildVideoWhere(f)
	query := selectVideo + where + ` ORDER BY published_at DESC, created_at DESC`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

// CountVideos returns the number of videos matching the filter,
// ignoring Limit and Offset.
func (q *queries) CountVideos(ctx context.Context, f VideoFilter) (int, error) {
	where, args := buildVideoWhere(f)
	var count int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return count, nil
}

// SetVideoStatus moves a video through the triage lifecycle. SavedAt
// and DiscardedAt are mutually exclusive; whichever does not match the
// new status is cleared.
func (q *queries) SetVideoStatus(ctx context.Context, id string, status model.VideoStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	now := time.Now().UTC().Format(timeLayout)
	var savedAt, discardedAt *string
	switch status {
	case model.StatusSaved:
		savedAt = &now
	case model.StatusDiscarded:
		discardedAt = &now
	}

	res, err := q.db.ExecContext(ctx,
		`UPDATE videos SET status = ?, saved_at = ?, discarded_at = ? WHERE id = ?`,
		string(status), savedAt, discardedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetVideoShort updates the short-form flag of a video.
func (q *queries) SetVideoShort(ctx context.Context, id string, isShort bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE videos SET is_short = ? WHERE id = ?`, boolToInt(isShort), id,
	)
	if err != nil {
		return fmt.Errorf("update video short flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteVideo removes a video by its internal ID.
func (q *queries) DeleteVideo(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

// PurgeDiscarded deletes all discarded videos and returns how many were
// removed.
func (q *queries) PurgeDiscarded(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM videos WHERE status = ?`, string(model.StatusDiscarded))
	if err != nil {
		return 0, fmt.Errorf("purge discarded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// GetSettings returns the settings row, creating it with defaults on
// first access.
func (q *queries) GetSettings(ctx context.Context) (*model.Settings, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT http_timeout, backup_enabled, backup_schedule, backup_time, backup_format,
		        backup_retention_days, last_backup_at, last_backup_status, last_backup_error, updated_at
		 FROM settings WHERE id = 1`,
	)
	st, err := scanSettings(row)
	if err == sql.ErrNoRows {
		st = model.DefaultSettings()
		if err := q.insertSettings(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	}
	return st, err
}

// UpdateSettings persists the settings row, creating it if missing.
func (q *queries) UpdateSettings(ctx context.Context, s *model.Settings) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := q.db.ExecContext(ctx,
		`UPDATE settings SET http_timeout = ?, backup_enabled = ?, backup_schedule = ?, backup_time = ?,
		        backup_format = ?, backup_retention_days = ?, last_backup_at = ?, last_backup_status = ?,
		        last_backup_error = ?, updated_at = ?
		 WHERE id = 1`,
		s.HTTPTimeout, boolToInt(s.BackupEnabled), string(s.BackupSchedule), s.BackupTime,
		string(s.BackupFormat), s.BackupRetentionDays, formatTimePtr(s.LastBackupAt),
		s.LastBackupStatus, s.LastBackupError, now,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return q.insertSettings(ctx, s)
	}
	s.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

func (q *queries) insertSettings(ctx context.Context, s *model.Settings) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settings (id, http_timeout, backup_enabled, backup_schedule, backup_time,
		                       backup_format, backup_retention_days, last_backup_at, last_backup_status,
		                       last_backup_error, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.HTTPTimeout, boolToInt(s.BackupEnabled), string(s.BackupSchedule), s.BackupTime,
		string(s.BackupFormat), s.BackupRetentionDays, formatTimePtr(s.LastBackupAt),
		s.LastBackupStatus, s.LastBackupError, now,
	)
	if err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}
	s.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const selectChannel = `SELECT id, youtube_channel_id, name, rss_url, youtube_url, thumbnail_url,
       last_checked, last_video_id, created_at, updated_at
FROM channels`

const selectVideo = `SELECT id, youtube_video_id, channel_id, channel_youtube_id, channel_name,
       channel_thumbnail_url, title, description, thumbnail_url, video_url,
       published_at, status, saved_at, discarded_at, is_short, created_at
FROM videos`

func buildVideoWhere(f VideoFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ChannelYouTubeID != "" {
		conds = append(conds, "channel_youtube_id = ?")
		args = append(args, f.ChannelYouTubeID)
	}
	if f.IsShort != nil {
		conds = append(conds, "is_short = ?")
		args = append(args, boolToInt(*f.IsShort))
	}
	if f.Query != "" {
		conds = append(conds, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChannel(row scannable) (*model.Channel, error) {
	var ch model.Channel
	var thumb, lastChecked, lastVideo, created, updated sql.NullString
	err := row.Scan(&ch.ID, &ch.YouTubeID, &ch.Name, &ch.RSSURL, &ch.YouTubeURL, &thumb,
		&lastChecked, &lastVideo, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	ch.ThumbnailURL = thumb.String
	if lastChecked.Valid {
		t, _ := time.Parse(timeLayout, lastChecked.String)
		ch.LastChecked = &t
	}
	if lastVideo.Valid {
		v := lastVideo.String
		ch.LastVideoID = &v
	}
	if created.Valid {
		ch.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	if updated.Valid {
		ch.UpdatedAt, _ = time.Parse(timeLayout, updated.String)
	}
	return &ch, nil
}

func scanVideo(row scannable) (*model.Video, error) {
	var v model.Video
	var channelID, chThumb, thumb, savedAt, discardedAt sql.NullString
	var statusStr, publishedStr, createdStr string
	var isShort int
	err := row.Scan(&v.ID, &v.YouTubeID, &channelID, &v.ChannelYouTubeID, &v.ChannelName,
		&chThumb, &v.Title, &v.Description, &thumb, &v.VideoURL,
		&publishedStr, &statusStr, &savedAt, &discardedAt, &isShort, &createdStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan video: %w", err)
	}
	if channelID.Valid {
		id := channelID.String
		v.ChannelID = &id
	}
	v.ChannelThumbnailURL = chThumb.String
	v.ThumbnailURL = thumb.String
	v.PublishedAt, _ = time.Parse(timeLayout, publishedStr)
	v.Status = model.VideoStatus(statusStr)
	if savedAt.Valid {
		t, _ := time.Parse(timeLayout, savedAt.String)
		v.SavedAt = &t
	}
	if discardedAt.Valid {
		t, _ := time.Parse(timeLayout, discardedAt.String)
		v.DiscardedAt = &t
	}
	v.IsShort = isShort == 1
	v.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return &v, nil
}

func scanSettings(row scannable) (*model.Settings, error) {
	var s model.Settings
	var enabled int
	var scheduleStr, formatStr string
	var lastAt sql.NullString
	var updatedStr string
	err := row.Scan(&s.HTTPTimeout, &enabled, &scheduleStr, &s.BackupTime, &formatStr,
		&s.BackupRetentionDays, &lastAt, &s.LastBackupStatus, &s.LastBackupError, &updatedStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	s.BackupEnabled = enabled == 1
	s.BackupSchedule = model.BackupSchedule(scheduleStr)
	s.BackupFormat = model.BackupFormat(formatStr)
	if lastAt.Valid {
		t, _ := time.Parse(timeLayout, lastAt.String)
		s.LastBackupAt = &t
	}
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
	return &s, nil
}
