//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "memoflow", "secrets.json")
}

func keychainGet(service, account string) (string, error) {
	data, err := os.ReadFile(secretsFilePath())
	if err != nil {
		return "", fmt.Errorf("secret store not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("parsing secrets file: %w", err)
	}
	svc, ok := secrets[service]
	if !ok {
		return "", fmt.Errorf("service %q not found", service)
	}
	val, ok := svc[account]
	if !ok {
		return "", fmt.Errorf("account %q not found in service %q", account, service)
	}
	return val, nil
}
