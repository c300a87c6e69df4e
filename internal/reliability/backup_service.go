// Package reliability keeps off-site copies of the ledger files and runs
// daily housekeeping.
package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	backupFilePrefix = "ledger-backup-"
	backupFileSuffix = ".tar.gz"
	backupTimeLayout = "2006-01-02-150405.000"
	minBackupsToKeep = 3
)

// BackupMetadata is stored as backup-metadata.json inside each archive
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata describes one file in a backup archive
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo is a backup found in the store
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// LedgerBackupService versions ledger files in object storage. It implements
// domain.CommitSink: every committed ledger change uploads a fresh archive.
type LedgerBackupService struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewLedgerBackupService creates a backup service writing under prefix
func NewLedgerBackupService(store ObjectStore, prefix string, log zerolog.Logger) *LedgerBackupService {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &LedgerBackupService{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		log:    log.With().Str("service", "ledger_backup").Logger(),
	}
}

// Commit uploads the given files as one archive. Failures are logged only.
func (s *LedgerBackupService) Commit(ctx context.Context, message string, files []string) {
	if _, err := s.Backup(ctx, message, files); err != nil {
		s.log.Error().Err(err).Str("message", message).Msg("Ledger backup failed")
	}
}

// Backup archives files with a metadata entry and uploads the archive,
// returning its key.
func (s *LedgerBackupService) Backup(ctx context.Context, message string, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no files to back up")
	}

	now := s.now().UTC()
	archive, meta, err := buildArchive(now, message, files)
	if err != nil {
		return "", err
	}

	key := s.prefix + backupFilePrefix + now.Format(backupTimeLayout) + backupFileSuffix
	if err := s.store.Upload(ctx, key, bytes.NewReader(archive)); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Int("files", len(meta.Files)).
		Int("size_bytes", len(archive)).
		Str("message", message).
		Msg("Ledger backup uploaded")
	return key, nil
}

// ListBackups returns stored backups, newest first
func (s *LedgerBackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+backupFilePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if !strings.HasPrefix(name, backupFilePrefix) || !strings.HasSuffix(name, backupFileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupFilePrefix), backupFileSuffix)
		ts, err := time.Parse(backupTimeLayout, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping
// the newest few. retentionDays <= 0 keeps everything.
func (s *LedgerBackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}

func buildArchive(now time.Time, message string, files []string) ([]byte, BackupMetadata, error) {
	meta := BackupMetadata{Timestamp: now, Message: message}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, meta, fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)
		if err := addToArchive(tw, name, data, now); err != nil {
			return nil, meta, err
		}
		meta.Files = append(meta.Files, FileMetadata{
			Name:      name,
			SizeBytes: int64(len(data)),
			Checksum:  fmt.Sprintf("sha256:%x", sha256.Sum256(data)),
		})
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, meta, fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	if err := addToArchive(tw, "backup-metadata.json", metaJSON, now); err != nil {
		return nil, meta, err
	}

	if err := tw.Close(); err != nil {
		return nil, meta, fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, meta, fmt.Errorf("failed to finalize gzip: %w", err)
	}
	return buf.Bytes(), meta, nil
}

func addToArchive(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Size:    int64(len(data)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	return nil
}
