package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const stateFileName = "state.json"

// initState records whether first-time schema setup has completed, so
// table creation is not re-run on every boot.
type initState struct {
	DatabaseInitialized bool      `json:"database_initialized"`
	InitializedAt       time.Time `json:"initialized_at,omitempty"`
}

func statePath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), stateFileName)
}

func loadState(fs afero.Fs, dbPath string) (initState, error) {
	data, err := afero.ReadFile(fs, statePath(dbPath))
	if err != nil {
		if os.IsNotExist(err) {
			return initState{}, nil
		}
		return initState{}, fmt.Errorf("read state file: %w", err)
	}

	var st initState
	if err := json.Unmarshal(data, &st); err != nil {
		return initState{}, fmt.Errorf("parse state file: %w", err)
	}
	return st, nil
}

func saveState(fs afero.Fs, dbPath string, st initState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	path := statePath(dbPath)
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
