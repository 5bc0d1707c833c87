package platform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const registrationFile = "registration.json"

type registrationRecord struct {
	AppID        string    `json:"app_id"`
	DisplayName  string    `json:"display_name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Registrar records the application identity notifications are shown under.
// Registration is idempotent: a matching record is left untouched, anything
// else is replaced in one atomic write so a crash never leaves a half-written
// identity behind.
type Registrar struct {
	dir    string
	logger *slog.Logger
}

func NewRegistrar(dir string, logger *slog.Logger) *Registrar {
	return &Registrar{dir: dir, logger: logger}
}

func (r *Registrar) EnsureRegistered(appID, displayName string) error {
	if appID == "" {
		return fmt.Errorf("app ID is required")
	}

	path := filepath.Join(r.dir, registrationFile)
	if data, err := os.ReadFile(path); err == nil {
		var existing registrationRecord
		if json.Unmarshal(data, &existing) == nil &&
			existing.AppID == appID && existing.DisplayName == displayName {
			r.logger.Debug("application identity already registered", "appID", appID)
			return nil
		}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create registration dir: %w", err)
	}

	record := registrationRecord{
		AppID:        appID,
		DisplayName:  displayName,
		RegisteredAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registration: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit registration: %w", err)
	}

	r.logger.Info("application identity registered", "appID", appID, "displayName", displayName)
	return nil
}
