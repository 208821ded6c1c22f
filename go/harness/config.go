// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"fmt"
	"os"
	"runtime"

	"github.com/skribe-dev/skribe/go/cheatcodes"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the name of the optional project configuration file.
const ConfigFile = "skribe.yaml"

// Config contains the options of a test run.
type Config struct {
	// MaxExamples is the number of examples run for each fuzzed test.
	MaxExamples int `yaml:"max_examples"`
	// MaxDiscardRatio bounds the number of discarded examples of a test to
	// MaxDiscardRatio * MaxExamples.
	MaxDiscardRatio int    `yaml:"max_discard_ratio"`
	Seed            uint64 `yaml:"seed"`
	Jobs            int    `yaml:"jobs"`
	Interpreter     string `yaml:"interpreter"`
	// Artifacts is the directory containing the out directory of the
	// compiler, relative to the project root.
	Artifacts string `yaml:"artifacts"`
	// FileCacheSize is the number of files cached for the file cheatcodes,
	// a negative size disables the cache.
	FileCacheSize int `yaml:"file_cache_size"`
	// RearmPolicy is either "replace" or "reject".
	RearmPolicy string `yaml:"rearm_policy"`
}

func DefaultConfig() Config {
	return Config{
		MaxExamples:     100,
		MaxDiscardRatio: 10,
		Jobs:            runtime.NumCPU(),
		Interpreter:     "native",
		Artifacts:       ".",
		RearmPolicy:     cheatcodes.Replace.String(),
	}
}

// LoadConfig reads a configuration file. Options missing in the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("unable to parse config %s: %w", path, err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.MaxExamples <= 0 {
		return fmt.Errorf("max_examples must be positive, got %d", c.MaxExamples)
	}
	if c.MaxDiscardRatio < 0 {
		return fmt.Errorf("max_discard_ratio must not be negative, got %d", c.MaxDiscardRatio)
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive, got %d", c.Jobs)
	}
	if c.Interpreter == "" {
		return fmt.Errorf("no interpreter configured")
	}
	if _, err := cheatcodes.ParseRearmPolicy(c.RearmPolicy); err != nil {
		return err
	}
	return nil
}
