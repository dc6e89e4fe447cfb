package runconfig

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// A run file is a JSON object holding the same fields as RunConfig, so repeated runs
// can skip the interactive prompts entirely. Durations are given in seconds.
func LoadRunFile(buf []byte) (*RunConfig, error) {
	raw := map[string]any{}
	err := json.Unmarshal(buf, &raw)
	if err != nil {
		return nil, fmt.Errorf("run file is not valid JSON: %w", err)
	}

	type runFile struct {
		RunConfig         `mapstructure:",squash"`
		CommandTimeoutSec int
	}

	rf := &runFile{}
	err = mapstructure.Decode(raw, rf)
	if err != nil {
		return nil, fmt.Errorf("can't convert run file to RunConfig: %w", err)
	}

	cfg := rf.RunConfig
	cfg.CommandTimeout = time.Duration(rf.CommandTimeoutSec) * time.Second
	return &cfg, nil
}
