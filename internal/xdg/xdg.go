// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package xdg resolves XDG Base Directory paths for LingoPal.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "lingopal"

// ConfigDir returns $XDG_CONFIG_HOME/lingopal, falling back to ~/.config/lingopal.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/lingopal, falling back to ~/.local/share/lingopal.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// UploadsDir returns the default directory for profile pictures.
func UploadsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "uploads"), nil
}

func resolve(envVar, homeRel string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", oops.Code("XDG_NO_HOME").
			With("env", envVar).
			Errorf("neither %s nor HOME is set", envVar)
	}
	return filepath.Join(home, homeRel, appName), nil
}
