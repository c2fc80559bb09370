package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the first .env file found among paths
// without overriding variables already set. Missing files are not an error.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{".env", "~/.config/musiqhub/.env"}
	}

	for _, p := range paths {
		p = ExpandPath(p)
		err := godotenv.Load(p)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return "", fmt.Errorf("failed to load %s: %w", p, err)
	}
	return "", nil
}
