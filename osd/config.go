package osd

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Config is the daemon's on-disk configuration (spec §5's Config
// ambient concern), loaded the way the retrieved source's daemon.cli
// loads its own JSON config file — a plain struct decoded with
// jsoniter rather than the standard library's encoding/json, matching
// every other decode path this codebase uses.
type Config struct {
	OSDID       int32  `json:"osd_id"`
	ListenAddr  string `json:"listen_addr"`
	LogLevel    string `json:"log_level"`
	MonitorAddr string `json:"monitor_addr"`
	NoopWrite   bool   `json:"noop_write"`
}

// DefaultConfig matches the zero-config single-node deployment case.
func DefaultConfig() *Config {
	return &Config{
		OSDID:      0,
		ListenAddr: ":6800",
		LogLevel:   "info",
	}
}

// LoadConfig reads and decodes a JSON config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := DefaultConfig()
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}
