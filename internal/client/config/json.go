package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gofood/internal/flagx"
	"github.com/dmitrijs2005/gofood/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// leave the corresponding Config value untouched.
type JsonConfig struct {
	BaseURL        *string         `json:"api_url"`
	Platform       *string         `json:"platform"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	RefreshTimeout *timex.Duration `json:"refresh_timeout"`
	TokenDB        *string         `json:"token_db"`
	Debug          *bool           `json:"debug"`
}

// parseJson overlays cfg with the file given by -c/-config, if any.
func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", jsonConfigFile, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("config: parse %s: %w", jsonConfigFile, err)
	}

	if jc.BaseURL != nil {
		cfg.BaseURL = *jc.BaseURL
	}
	if jc.Platform != nil {
		cfg.Platform = *jc.Platform
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RefreshTimeout != nil {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}
	if jc.TokenDB != nil {
		cfg.TokenDB = *jc.TokenDB
	}
	if jc.Debug != nil {
		cfg.Debug = *jc.Debug
	}
	return nil
}
