package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// deviceFileName stores the per-installation identifier under the data
// directory.
const deviceFileName = "device_id"

// DeviceID returns the stable identifier for this installation, creating
// one on first use. The ID is sent with login requests so the service can
// tell installations apart. dataDir may be empty, in which case the
// default data directory is used.
func DeviceID(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	if dataDir == "" {
		return "", fmt.Errorf("config: cannot resolve data directory")
	}

	path := filepath.Join(dataDir, deviceFileName)

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("config: creating data directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("config: writing device id: %w", err)
	}

	return id, nil
}
