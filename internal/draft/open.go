package draft

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roelfdiedericks/gointake/internal/config"
	. "github.com/roelfdiedericks/gointake/internal/logging"
)

// Open builds the backend named by cfg.Backend.
func Open(cfg config.DraftConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return NewFileStore(cfg.Path)
	case "sqlite":
		path := cfg.Path
		if ext := filepath.Ext(path); ext != ".db" && ext != ".sqlite" {
			path = filepath.Join(path, "drafts.db")
		}
		return NewSQLiteStore(path)
	case "memory":
		L_warn("draft: memory backend, drafts will not survive a restart")
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("draft: unknown backend %q", cfg.Backend)
}
