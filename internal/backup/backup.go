// Package backup writes application data snapshots and schedules them.
package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ytwatch/internal/ingest"
	"ytwatch/internal/model"
	"ytwatch/internal/storage"
)

// Exporter supplies the JSON snapshot of tracked state.
type Exporter interface {
	ExportAll(ctx context.Context) (*ingest.Export, error)
}

// Result describes one completed backup run.
type Result struct {
	Files []string  `json:"files"`
	At    time.Time `json:"at"`
}

// Info describes one backup file on disk.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service writes backups in the configured format and maintains the
// retention window.
type Service struct {
	store    storage.Storage
	exporter Exporter
	dir      string
	log      *slog.Logger
}

// New creates the backup service writing into dir.
func New(store storage.Storage, exporter Exporter, dir string, log *slog.Logger) *Service {
	return &Service{store: store, exporter: exporter, dir: dir, log: log}
}

// Run produces one backup in the configured format. The outcome,
// success or failure, is recorded on the settings row.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	set, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	now := time.Now().UTC()
	stamp := now.Format("20060102_150405")

	format := set.BackupFormat
	if !format.Valid() {
		format = model.FormatJSON
	}

	var files []string
	var runErr error

	if format == model.FormatJSON || format == model.FormatBoth {
		name := fmt.Sprintf("backup_%s.json.gz", stamp)
		if err := s.writeJSON(ctx, filepath.Join(s.dir, name)); err != nil {
			runErr = fmt.Errorf("json backup: %w", err)
		} else {
			files = append(files, name)
		}
	}
	if format == model.FormatDatabase || format == model.FormatBoth {
		name := fmt.Sprintf("backup_%s.db", stamp)
		if err := s.store.BackupTo(ctx, filepath.Join(s.dir, name)); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("database backup: %w", err)
			}
		} else {
			files = append(files, name)
		}
	}

	set.LastBackupAt = &now
	if runErr != nil {
		set.LastBackupStatus = "failed"
		set.LastBackupError = runErr.Error()
	} else {
		set.LastBackupStatus = "success"
		set.LastBackupError = ""
	}
	if err := s.store.UpdateSettings(ctx, set); err != nil {
		s.log.Error("record backup outcome", "error", err)
	}

	if runErr != nil {
		return nil, runErr
	}
	s.log.Info("backup complete", "files", files)
	return &Result{Files: files, At: now}, nil
}

func (s *Service) writeJSON(ctx context.Context, path string) error {
	export, err := s.exporter.ExportAll(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // path is built from the configured backup dir
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(export); err != nil {
		_ = gz.Close()
		_ = f.Close()
		return fmt.Errorf("encode export: %w", err)
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close gzip: %w", err)
	}
	return f.Close()
}

// CleanupRetention removes backup files older than the configured
// retention window and returns how many went away. A non-positive
// window keeps everything.
func (s *Service) CleanupRetention(ctx context.Context) (int, error) {
	set, err := s.store.GetSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("get settings: %w", err)
	}
	if set.BackupRetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -set.BackupRetentionDays)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read backup dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isBackupFile(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				s.log.Error("remove old backup", "file", e.Name(), "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// List returns the backup files on disk, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isBackupFile(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:      e.Name(),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime().UTC(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

func isBackupFile(name string) bool {
	if !strings.HasPrefix(name, "backup_") {
		return false
	}
	return strings.HasSuffix(name, ".json.gz") || strings.HasSuffix(name, ".db")
}
