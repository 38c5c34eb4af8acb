// Package config loads the YAML retention policy that customizes how a
// transcript is pruned: how many trailing assistant turns survive by
// default, what marker token the hook subsystem writes, and which tools
// count as commit-bearing for derived-boundary detection.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/transcriptprune/transcriptprune/internal/boundary"
)

// CommitTool names a tool whose successful invocation should be treated as
// a derived boundary, along with the substrings in its result content that
// indicate success.
type CommitTool struct {
	Name       string   `yaml:"name"`
	Substrings []string `yaml:"substrings"`
}

// Config is the top-level retention policy YAML structure.
type Config struct {
	Version               string       `yaml:"version"`
	DefaultKeepAssistants int          `yaml:"default_keep_assistants"`
	MarkerToken           string       `yaml:"marker_token"`
	CommitPattern         string       `yaml:"commit_pattern"`
	CommitTools           []CommitTool `yaml:"commit_tools"`

	compiledCommitPattern *regexp.Regexp
}

// Default returns the built-in policy: keep the last 3 assistant turns,
// the standard marker token, and bash `git commit` detection.
func Default() *Config {
	cfg := &Config{
		Version:               "1",
		DefaultKeepAssistants: 3,
		MarkerToken:           "===INTENT_BOUNDARY===",
		CommitPattern:         `git commit -m ["']([^"']+)["']`,
		CommitTools: []CommitTool{
			{Name: "bash", Substrings: []string{"files changed", "insertions", "deletions"}},
		},
	}
	_ = cfg.Compile()
	return cfg
}

// Load reads and parses a retention policy YAML file. Any field left
// unset in the file falls back to Default's value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	cfg := Default()
	cfg.compiledCommitPattern = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse policy YAML: %w", err)
	}

	if cfg.DefaultKeepAssistants <= 0 {
		cfg.DefaultKeepAssistants = Default().DefaultKeepAssistants
	}
	if cfg.MarkerToken == "" {
		cfg.MarkerToken = Default().MarkerToken
	}
	if cfg.CommitPattern == "" {
		cfg.CommitPattern = Default().CommitPattern
	}
	if len(cfg.CommitTools) == 0 {
		cfg.CommitTools = Default().CommitTools
	}

	if err := cfg.Compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Compile pre-compiles the commit-message regex.
func (c *Config) Compile() error {
	re, err := regexp.Compile(c.CommitPattern)
	if err != nil {
		return fmt.Errorf("commit pattern %q: %w", c.CommitPattern, err)
	}
	c.compiledCommitPattern = re
	return nil
}

// BoundaryOptions translates the policy into boundary.Options, merging the
// tool names and success substrings of every configured CommitTool.
func (c *Config) BoundaryOptions() boundary.Options {
	opts := boundary.Options{
		MarkerToken:          c.MarkerToken,
		CommitCommandPattern: c.compiledCommitPattern,
	}

	seenTool := make(map[string]struct{})
	seenSub := make(map[string]struct{})
	for _, t := range c.CommitTools {
		if _, ok := seenTool[t.Name]; !ok {
			seenTool[t.Name] = struct{}{}
			opts.CommitToolNames = append(opts.CommitToolNames, t.Name)
		}
		for _, s := range t.Substrings {
			if _, ok := seenSub[s]; !ok {
				seenSub[s] = struct{}{}
				opts.CommitSubstrings = append(opts.CommitSubstrings, s)
			}
		}
	}

	if opts.CommitCommandPattern == nil {
		opts.CommitCommandPattern = regexp.MustCompile(c.CommitPattern)
	}

	return opts
}
