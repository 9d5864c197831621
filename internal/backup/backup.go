// Package backup takes periodic encrypted snapshots of the SQLite
// database. Snapshots are produced with VACUUM INTO so they are
// consistent without blocking writers, sealed with a passphrase-derived
// key, and kept locally with simple count-based retention.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const snapshotExt = ".shiori.enc"

type Config struct {
	Dir        string
	Passphrase string
	Interval   time.Duration
	Keep       int
}

type Manager struct {
	cfg    Config
	db     *sql.DB
	logger *slog.Logger
}

func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 7
	}
	return &Manager{cfg: cfg, db: db, logger: logger}
}

// Run snapshots on the configured interval until the context ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Snapshot(ctx); err != nil {
				m.logger.Error("backup snapshot", "error", err)
			}
		}
	}
}

// Snapshot writes one encrypted snapshot and prunes old ones. It
// returns the path of the snapshot written.
func (m *Manager) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.cfg.Dir, 0700); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	tmp := filepath.Join(m.cfg.Dir, fmt.Sprintf(".snapshot-%d.db", time.Now().UnixNano()))
	defer os.Remove(tmp)

	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, tmp); err != nil {
		return "", fmt.Errorf("vacuum into snapshot: %w", err)
	}

	plain, err := os.ReadFile(tmp)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Encrypt(plain, m.cfg.Passphrase)
	if err != nil {
		return "", err
	}

	name := time.Now().UTC().Format("20060102-150405") + snapshotExt
	dst := filepath.Join(m.cfg.Dir, name)
	if err := os.WriteFile(dst, sealed, 0600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if err := m.prune(); err != nil {
		m.logger.Warn("prune snapshots", "error", err)
	}

	m.logger.Info("backup written", "path", dst, "bytes", len(sealed))
	return dst, nil
}

// Restore decrypts the named snapshot to dstPath. The caller is
// responsible for stopping the server and swapping the database file.
func (m *Manager) Restore(snapshotPath, dstPath string) error {
	sealed, err := os.ReadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	plain, err := Decrypt(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, plain, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	return nil
}

func (m *Manager) prune() error {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), snapshotExt) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= m.cfg.Keep {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	for _, name := range names[:len(names)-m.cfg.Keep] {
		if err := os.Remove(filepath.Join(m.cfg.Dir, name)); err != nil {
			return fmt.Errorf("remove old snapshot: %w", err)
		}
	}
	return nil
}
