package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string][]byte{}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[h.Name] = body
	}
	return files
}

func TestLedgerBackupService_Backup(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "portfolio_dual_momentum.json")
	require.NoError(t, os.WriteFile(ledgerPath, []byte(`{"cash":1000}`), 0644))

	store := newMemoryStore()
	svc := NewLedgerBackupService(store, "/paper/", zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 2, 3, 0, time.UTC) }

	key, err := svc.Backup(context.Background(), "[BUY] dual_momentum 005930", []string{ledgerPath})
	require.NoError(t, err)
	assert.Equal(t, "paper/ledger-backup-2025-03-10-090203.000.tar.gz", key)

	files := readArchive(t, store.objects[key])
	assert.Equal(t, `{"cash":1000}`, string(files["portfolio_dual_momentum.json"]))

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(files["backup-metadata.json"], &meta))
	assert.Equal(t, "[BUY] dual_momentum 005930", meta.Message)
	require.Len(t, meta.Files, 1)
	assert.Equal(t, int64(13), meta.Files[0].SizeBytes)
	assert.Contains(t, meta.Files[0].Checksum, "sha256:")
}

func TestLedgerBackupService_CommitSwallowsErrors(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unreachable")
	svc := NewLedgerBackupService(store, "", zerolog.Nop())

	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	assert.NotPanics(t, func() {
		svc.Commit(context.Background(), "msg", []string{path})
		svc.Commit(context.Background(), "msg", nil)
		svc.Commit(context.Background(), "msg", []string{"/does/not/exist"})
	})
	assert.Empty(t, store.objects)
}

func TestLedgerBackupService_RotateKeepsNewest(t *testing.T) {
	store := newMemoryStore()
	svc := NewLedgerBackupService(store, "", zerolog.Nop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for _, daysAgo := range []int{1, 40, 50, 60, 70} {
		key := backupFilePrefix + now.AddDate(0, 0, -daysAgo).Format(backupTimeLayout) + backupFileSuffix
		store.objects[key] = []byte("x")
	}
	store.objects["unrelated.txt"] = []byte("y")

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 5)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))
	assert.Equal(t, int64(24), backups[0].AgeHours)

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	deleted, err = svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestS3Config_Enabled(t *testing.T) {
	assert.False(t, S3Config{}.Enabled())
	assert.True(t, S3Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}.Enabled())
}
