/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/spf13/afero"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// Config represents the main configuration structure.
type Config struct {
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Execution    *Execution        `json:"execution,omitempty"`
	Keywords     *Keywords         `json:"keywords,omitempty"`
	ExcludeLists []string          `json:"excludeLists,omitempty"`
	Environment  map[string]string `json:"environment,omitempty"`
	WorkDir      string            `json:"workDir,omitempty"`
}

// Execution holds the settings of the test runner.
type Execution struct {
	Concurrency     int             `json:"concurrency,omitempty"`
	GracePeriod     metav1.Duration `json:"gracePeriod,omitempty"`
	ResourceTimeout metav1.Duration `json:"resourceTimeout,omitempty"`
	TimeoutFactor   float64         `json:"timeoutFactor,omitempty"`
}

// Keywords holds the keyword vocabulary of the corpus.
type Keywords struct {
	// Valid lists the keywords selection expressions may use. Empty allows any.
	Valid        []string `json:"valid,omitempty"`
	AllowNumeric bool     `json:"allowNumeric,omitempty"`
}

const (
	// ShellDependency is the name of the dependency that runs test commands.
	ShellDependency = "shell"
	// DefaultShell is looked up in PATH when no configuration file exists.
	DefaultShell = "sh"
	// DefaultConfigPath is where the configuration file is looked up.
	DefaultConfigPath = "~/.config/xconform.yaml"
	// DefaultWorkDir holds the result store.
	DefaultWorkDir = "~/.cache/xconform"
)

// Load loads and validates an xconform configuration file. Relative exclude
// list paths are resolved against the directory of the file.
func Load(fs afero.Fs, configPath string) (*Config, error) {
	if !strings.HasSuffix(configPath, ".yaml") {
		return nil, fmt.Errorf("Config file must have .yaml extension")
	}

	expandedPath, err := utils.ExpandTildeAbs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	data, err := afero.ReadFile(fs, expandedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := utils.ValidateYAML(data); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.setDefaults()

	for i, path := range cfg.ExcludeLists {
		cfg.ExcludeLists[i] = utils.ResolvePath(filepath.Dir(expandedPath), path)
	}

	return &cfg, nil
}

// Fallback returns a config that uses only binaries from PATH.
func Fallback() (*Config, error) {
	mandatoryDeps := []string{DefaultShell}

	foundDeps := make(map[string]string)

	var missingMandatoryDeps []string

	for _, dep := range mandatoryDeps {
		if _, err := exec.LookPath(dep); err != nil {
			missingMandatoryDeps = append(missingMandatoryDeps, dep)
		} else {
			foundDeps[ShellDependency] = dep
		}
	}

	if len(missingMandatoryDeps) > 0 {
		return nil, fmt.Errorf("missing required dependencies from PATH (%s)", strings.Join(missingMandatoryDeps, ", "))
	}

	cfg := &Config{Dependencies: foundDeps, WorkDir: DefaultWorkDir}
	cfg.setDefaults()

	return cfg, nil
}

// setDefaults initializes nil maps and sections.
func (c *Config) setDefaults() {
	if c.Dependencies == nil {
		c.Dependencies = make(map[string]string)
	}

	if c.Environment == nil {
		c.Environment = make(map[string]string)
	}

	if c.Execution == nil {
		c.Execution = &Execution{}
	}

	if c.Keywords == nil {
		c.Keywords = &Keywords{}
	}
}
