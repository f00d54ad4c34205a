// Package paths provides filesystem defaults for Lingua.
package paths

import (
	"os"
	"path/filepath"
)

// DefaultModelsDir returns the default directory for downloaded models,
// ~/.lingua/models (or the platform's home-directory equivalent). When no
// home directory can be determined it falls back to ./models.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.FromSlash("./models")
	}
	return filepath.Join(home, ".lingua", "models")
}
