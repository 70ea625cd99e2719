package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvFile is read when --env-file is not given.
const DefaultEnvFile = ".env"

// LoadDotEnv exports KEY=VALUE pairs from a .env file into the process
// environment so that the koanf env layer and provider key injection see them.
// Non-empty variables already set in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultEnvFile
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if info.IsDir() {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for key, value := range v.AllSettings() {
		name := strings.ToUpper(key)
		if current, exists := os.LookupEnv(name); exists && current != "" {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}
