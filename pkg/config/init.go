package config

import (
	"fmt"
	"os"
)

const configHeader = `# ormkit configuration file
#
# Every value can be overridden with an ORMKIT_ environment variable,
# e.g. ORMKIT_LOGGING_LEVEL=DEBUG.
#
# databases maps a logical name to its backend. Supported types: sqlite, postgres.
# destructive_migration: never | on_downgrade | always

`

// InitConfig writes cfg to path (the default location when path is empty).
// An existing file is only replaced when force is true.
// Returns the path written.
func InitConfig(cfg *Config, path string, force bool) (string, error) {
	if path == "" {
		path = GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := writeConfig(cfg, path, configHeader); err != nil {
		return "", err
	}
	return path, nil
}
