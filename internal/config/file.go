package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/paths"
)

// AtomicWrite replaces path with data via a synced temp file in the same
// directory. Readers see either the old or the new content, never a mix.
// Drafts, review exports and the config itself are written this way.
func AtomicWrite(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := paths.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// writeWithBackup keeps the previous file as <path>.bak, then writes v as
// indented JSON. A failed backup is logged and the write goes ahead.
func writeWithBackup(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	prev, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := AtomicWrite(path+".bak", prev, 0600); err != nil {
			logging.L_warn("config: backup failed, saving anyway", "path", path, "error", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		logging.L_warn("config: could not read previous config", "path", path, "error", err)
	}

	if err := AtomicWrite(path, data, 0600); err != nil {
		return err
	}
	logging.L_debug("config: saved", "path", path)
	return nil
}
