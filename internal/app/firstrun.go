// Package app holds per-user application state.
package app

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	markerFileName = "first_run_completed"
	appName        = "docspectre"
)

// GetAppConfigDir returns the path to the application's configuration directory.
func GetAppConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// IsFirstRun reports whether the marker file was absent, creating it if so.
// Any error is treated as "not first run".
func IsFirstRun() bool {
	appConfigDir, err := GetAppConfigDir()
	if err != nil {
		log.Error().Err(err).Msg("failed to get app config directory")
		return false
	}
	return markFirstRun(appConfigDir)
}

func markFirstRun(dir string) bool {
	markerFilePath := filepath.Join(dir, markerFileName)

	_, err := os.Stat(markerFilePath)
	switch {
	case err == nil:
		log.Debug().Str("path", markerFilePath).Msg("marker file exists, not first run")
		return false
	case !errors.Is(err, os.ErrNotExist):
		log.Error().Err(err).Str("path", markerFilePath).Msg("failed to check first run marker file")
		return false
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("path", dir).Msg("failed to create app config directory")
		return false
	}
	f, err := os.Create(markerFilePath)
	if err != nil {
		log.Error().Err(err).Str("path", markerFilePath).Msg("failed to create first run marker file")
		return false
	}
	_ = f.Close()

	log.Debug().Str("path", markerFilePath).Msg("first run detected and marker created")
	return true
}
