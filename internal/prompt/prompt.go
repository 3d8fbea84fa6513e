// Package prompt assembles the completion prompt for an agent from its
// base prompt, optional JSON template, and optional input documents.
package prompt

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/shiki-ai/shiki/internal/model"
)

const (
	templateHeader = "\n\nUse this exact JSON structure as your template:\n"
	templateFooter = "\n\nFill in the values based on the document content, but maintain this exact structure and field names."
	inputHeader    = "\n\nDocument to analyze:\n"
)

// Assembler builds prompts for agent definitions. Template and input
// problems degrade the prompt instead of failing the run: a broken
// template means the agent runs without one, and an unreadable input
// means the agent runs on its base prompt alone.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an assembler that logs degradations to logger.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Build produces the full prompt for an agent definition. The result
// is deterministic for a given definition and filesystem state.
func (a *Assembler) Build(def *model.AgentDefinition) string {
	tmpl := a.loadTemplate(def.TemplateFile)
	input := a.readInput(def)
	return assemble(def.Prompt, tmpl, input)
}

// assemble concatenates the prompt sections. The exact byte layout is
// part of the agent contract: existing registries were authored against
// this prompt shape and downstream templates depend on it.
func assemble(base, tmpl, input string) string {
	var b strings.Builder
	b.WriteString(base)
	if tmpl != "" {
		b.WriteString(templateHeader)
		b.WriteString(tmpl)
		b.WriteString(templateFooter)
	}
	if input != "" {
		b.WriteString(inputHeader)
		b.WriteString(input)
	}
	return b.String()
}

// loadTemplate reads a template file and returns it re-indented with
// two spaces, or the empty string when the template cannot be used.
// Missing path, empty file, and invalid JSON all degrade to no
// template rather than erroring, with key order preserved for valid
// templates since the model is told to reproduce the structure.
func (a *Assembler) loadTemplate(path string) string {
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Error("failed to read template file", "path", path, "error", err)
		}
		return ""
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, trimmed, "", "  "); err != nil {
		a.logger.Warn("template file is not valid JSON, running without template", "path", path)
		return ""
	}
	a.logger.Info("loaded template", "path", path)
	return indented.String()
}

// readInput collects the agent's input documents. Multiple input files
// are labeled with their path and concatenated; a single input file is
// passed through unlabeled.
func (a *Assembler) readInput(def *model.AgentDefinition) string {
	if len(def.InputFiles) > 0 {
		var parts []string
		for _, path := range def.InputFiles {
			raw, err := os.ReadFile(path)
			if err != nil {
				a.logger.Warn("skipping unreadable input file", "path", path, "error", err)
				continue
			}
			parts = append(parts, "--- Content from "+path+" ---\n"+string(raw)+"\n")
		}
		return strings.Join(parts, "\n")
	}

	if def.InputFile == "" {
		return ""
	}
	raw, err := os.ReadFile(def.InputFile)
	if err != nil {
		if os.IsNotExist(err) {
			a.logger.Info("input file not found, using prompt only", "path", def.InputFile)
		} else {
			a.logger.Warn("failed to read input file, using prompt only", "path", def.InputFile, "error", err)
		}
		return ""
	}
	return string(raw)
}
