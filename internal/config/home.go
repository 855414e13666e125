package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	homeEnvVar  = "EEGCAT_HOME"
	homeDirName = ".eegcat"
	catalogFile = "catalog.db"
)

// GetHome returns the eegcat home directory
// Priority order:
//  1. EEGCAT_HOME environment variable (if set)
//  2. .eegcat under the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return GetHomeWithRoot(cwd)
}

// GetHomeWithRoot is GetHome with an explicit fallback root
func GetHomeWithRoot(root string) (string, error) {
	home := os.Getenv(homeEnvVar)
	if home == "" {
		home = filepath.Join(root, homeDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create eegcat home directory: %w", err)
	}
	return home, nil
}

// DefaultConfigPath returns $EEGCAT_HOME/config.yaml without creating anything
func DefaultConfigPath() string {
	if home := os.Getenv(homeEnvVar); home != "" {
		return filepath.Join(home, DefaultConfigFile)
	}
	return filepath.Join(homeDirName, DefaultConfigFile)
}

// GetCatalogDBPath returns the catalog database path. An explicit path from
// the configuration wins; otherwise it is $EEGCAT_HOME/catalog.db.
func (c *Config) GetCatalogDBPath() (string, error) {
	if c.CatalogDB != "" {
		return c.CatalogDB, nil
	}

	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, catalogFile), nil
}
