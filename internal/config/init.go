package config

import (
	"os"
	"path/filepath"
)

// Init loads app.yml from the directory named by CONFIG_DIR (default ".").
// Unlike LoadConfig it treats a missing file as an error.
func Init() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, "app.yml")
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return LoadConfig(path)
}
