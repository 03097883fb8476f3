package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const (
	keyDataDirectory = "data-dir"
	keyMaxRetry      = "max-retry"
	applicationName  = "cargo-msfs"
)

type Config struct {
	DataDirectory string
	MaxRetry      int
	BaseURLs      map[string]string
}

// newViper layers flags over SDKFETCH_* environment variables over defaults.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SDKFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyDataDirectory, defaultDataDirectory())
	v.SetDefault(keyMaxRetry, 0)
	for _, line := range contracts.ProductLines() {
		v.SetDefault(urlKey(line), line.BaseURL)
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (config Config, err error) {
	config.DataDirectory = v.GetString(keyDataDirectory)
	config.MaxRetry = v.GetInt(keyMaxRetry)
	if strings.TrimSpace(config.DataDirectory) == "" {
		return config, fmt.Errorf("no data directory configured; set --%s or SDKFETCH_DATA_DIR", keyDataDirectory)
	}
	if config.MaxRetry < 0 {
		return config, fmt.Errorf("--%s must not be negative (got %d)", keyMaxRetry, config.MaxRetry)
	}
	config.BaseURLs = make(map[string]string)
	for _, line := range contracts.ProductLines() {
		config.BaseURLs[line.Name] = v.GetString(urlKey(line))
	}
	return config, nil
}

// ProductLine looks up a product line and applies any configured endpoint override.
func (this Config) ProductLine(name string) (contracts.ProductLine, error) {
	line, err := contracts.ParseProductLine(name)
	if err != nil {
		return line, err
	}
	if address := this.BaseURLs[line.Name]; address != "" {
		line.BaseURL = address
	}
	return line, nil
}

func (this Config) ProductLines(names []string) (lines []contracts.ProductLine, err error) {
	for _, name := range names {
		line, err := this.ProductLine(name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func urlKey(line contracts.ProductLine) string {
	return line.Name + "-url"
}

// defaultDataDirectory follows each platform's convention for per-user
// application data.
func defaultDataDirectory() string {
	var base string
	switch runtime.GOOS {
	case "windows", "darwin":
		base, _ = os.UserConfigDir()
	default:
		if base = os.Getenv("XDG_DATA_HOME"); base == "" {
			if home, err := os.UserHomeDir(); err == nil {
				base = filepath.Join(home, ".local", "share")
			}
		}
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, applicationName)
}
