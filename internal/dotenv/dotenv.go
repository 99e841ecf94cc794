// Package dotenv loads KEY=VALUE pairs from an env file into the process
// environment at startup. Variables already present in the environment
// win over file values.
package dotenv

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Load reads the file at path and sets any keys not already present in
// the environment. A missing file is not an error.
func Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading env file %q: %w", path, err)
	}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		val = strings.TrimSpace(val)
		val = unquote(val)
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("setting %q from %q: %w", key, path, err)
		}
	}
	return nil
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
		return val[1 : len(val)-1]
	}
	return val
}
