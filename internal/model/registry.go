// Package model defines the registry document, execution results, and the
// HTTP API envelopes shared by the server and MCP surfaces.
package model

import "fmt"

// Agent-scoped model parameter defaults, applied when the registry document
// leaves them unset.
const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.1
)

// Process-wide setting defaults.
const (
	DefaultMaxRetries = 3
)

// AgentDefinition is one named unit of work in the registry document.
// Enabled, MaxTokens, and Temperature are pointers so that "absent" can be
// distinguished from an explicit zero; absent fields fall back to defaults.
type AgentDefinition struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty"`
	Prompt       string   `json:"prompt"`
	InputFile    string   `json:"input_file,omitempty"`
	InputFiles   []string `json:"input_files,omitempty"`
	TemplateFile string   `json:"template_file,omitempty"`
	OutputFile   string   `json:"output_file,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// IsEnabled reports whether the agent participates in execution.
// An absent enabled flag means enabled.
func (a *AgentDefinition) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// InputPaths returns the configured input source paths. The plural form
// takes priority when both are present.
func (a *AgentDefinition) InputPaths() []string {
	if len(a.InputFiles) > 0 {
		return a.InputFiles
	}
	if a.InputFile != "" {
		return []string{a.InputFile}
	}
	return nil
}

// ResolveMaxTokens returns the agent's max token budget, falling back to
// the system default.
func (a *AgentDefinition) ResolveMaxTokens() int {
	if a.MaxTokens != nil {
		return *a.MaxTokens
	}
	return DefaultMaxTokens
}

// ResolveTemperature returns the agent's sampling temperature, falling back
// to the system default.
func (a *AgentDefinition) ResolveTemperature() float64 {
	if a.Temperature != nil {
		return *a.Temperature
	}
	return DefaultTemperature
}

// Settings are the process-wide knobs carried inside the registry document.
type Settings struct {
	BackupOriginalFiles *bool  `json:"backup_original_files,omitempty"`
	MaxRetries          *int   `json:"max_retries,omitempty"`
	LogLevel            string `json:"log_level,omitempty"`
}

// BackupEnabled reports whether pre-overwrite backups are on. Absent means on.
func (s Settings) BackupEnabled() bool {
	return s.BackupOriginalFiles == nil || *s.BackupOriginalFiles
}

// ResolveMaxRetries returns the configured retry bound, falling back to the
// default. Values below 1 are clamped to 1 — at least one attempt is made.
func (s Settings) ResolveMaxRetries() int {
	n := DefaultMaxRetries
	if s.MaxRetries != nil {
		n = *s.MaxRetries
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ClaudeConfig holds the completion endpoint configuration block.
type ClaudeConfig struct {
	DefaultModel string `json:"default_model,omitempty"`
}

// APIConfig is the api_config block of the registry document.
type APIConfig struct {
	Claude ClaudeConfig `json:"claude"`
}

// RegistryDocument is the persisted configuration document: the agent map
// plus process-wide settings. It is the single source of truth for the
// enabled/disabled state of every agent.
type RegistryDocument struct {
	Agents    map[string]*AgentDefinition `json:"agents"`
	Settings  Settings                    `json:"settings,omitempty"`
	APIConfig APIConfig                   `json:"api_config,omitempty"`
}

// ValidateAgentID checks that an agent id conforms to the allowed format:
// 1-255 ASCII characters, alphanumeric plus dots, hyphens, and underscores.
func ValidateAgentID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("agent id is required")
	}
	if len(id) > 255 {
		return fmt.Errorf("agent id must be at most 255 characters")
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') &&
			c != '.' && c != '-' && c != '_' {
			return fmt.Errorf("agent id contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
