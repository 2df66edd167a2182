package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayato-h/albumdrop/types"
)

var ConfigPath = "config.yaml" // be aware that it can be changed, default to ./config.yaml

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Host:              "", // auto-detect when empty
		FTPPort:           2121,
		PassivePortStart:  50000,
		PassivePortEnd:    50100,
		APIPort:           4000, // same port the album backend always ran on
		DatabasePath:      "albumdrop.db",
		CloudinaryURL:     "",
		UploadFolder:      "albums",
		QuietPeriodMS:     1000,
		PollIntervalMS:    100,
		DebounceMS:        500,
		CooldownSeconds:   10,
		UploadTimeoutSecs: 60,
	}
}

// LoadConfig reads the yaml config, writing a default one when none exists.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	return cfg, nil
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
