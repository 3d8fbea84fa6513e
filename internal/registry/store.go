// Package registry loads, persists, and mutates the agent registry
// document backing the execution pipeline.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shiki-ai/shiki/internal/model"
)

// Store owns the registry document for a single config file. All reads
// and mutations are serialized through its mutex so that concurrent
// enable/disable calls and hot reloads never interleave partial state.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	doc   *model.RegistryDocument
	order []string
}

// NewStore creates a store bound to a registry file path. The file is
// not read until Load is called.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the registry file path the store is bound to.
func (s *Store) Path() string { return s.path }

// Load reads and parses the registry file, replacing any previously
// loaded document. A missing file maps to ErrConfigMissing and a
// malformed one to ErrConfigInvalid so callers can distinguish the two.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigMissing, s.path)
		}
		return fmt.Errorf("registry: read %s: %w", s.path, err)
	}

	var doc model.RegistryDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, s.path, err)
	}
	if doc.Agents == nil {
		doc.Agents = map[string]*model.AgentDefinition{}
	}

	order, err := agentKeyOrder(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, s.path, err)
	}

	s.mu.Lock()
	s.doc = &doc
	s.order = order
	s.mu.Unlock()

	s.logger.Info("registry loaded", "path", s.path, "agents", len(order))
	return nil
}

// agentKeyOrder walks the raw JSON with a token decoder and records the
// member keys of the top-level "agents" object in document order.
// encoding/json maps discard ordering, and execute-all must visit
// agents in the order the file declares them. Duplicate agent ids are
// rejected since the map form would silently keep only the last one.
func agentKeyOrder(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	// Opening brace of the document object.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v at top level", tok)
		}
		if key != "agents" {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}

		open, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := open.(json.Delim); !ok || delim != '{' {
			return nil, fmt.Errorf("agents must be an object, got %v", open)
		}

		var order []string
		seen := map[string]struct{}{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			id, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected agents key %v", tok)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("duplicate agent id %q", id)
			}
			seen[id] = struct{}{}
			order = append(order, id)
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	return nil, nil
}

// skipValue consumes exactly one JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// Save writes the current document back to the registry file. The
// document is serialized to a temp file in the same directory and then
// renamed over the original, so readers never observe a half-written
// config even if the process dies mid-write.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return fmt.Errorf("registry: save before load")
	}
	return s.writeDocument(s.doc)
}

func (s *Store) writeDocument(doc *model.RegistryDocument) error {
	// Marshaling the agents map directly would sort ids alphabetically
	// and rewrite the file in a different order than it was authored.
	// Encode the agents object by hand in declaration order instead.
	var agents bytes.Buffer
	agents.WriteByte('{')
	written := 0
	for _, id := range s.order {
		def, ok := doc.Agents[id]
		if !ok {
			continue
		}
		if written > 0 {
			agents.WriteByte(',')
		}
		written++
		key, err := json.Marshal(id)
		if err != nil {
			return fmt.Errorf("registry: encode agent id %q: %w", id, err)
		}
		val, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("registry: encode agent %q: %w", id, err)
		}
		agents.Write(key)
		agents.WriteByte(':')
		agents.Write(val)
	}
	agents.WriteByte('}')

	persisted := struct {
		Agents    json.RawMessage `json:"agents"`
		Settings  model.Settings  `json:"settings"`
		APIConfig model.APIConfig `json:"api_config"`
	}{
		Agents:    agents.Bytes(),
		Settings:  doc.Settings,
		APIConfig: doc.APIConfig,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(persisted); err != nil {
		return fmt.Errorf("registry: encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("registry: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("registry: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: replace %s: %w", s.path, err)
	}
	return nil
}

// Get returns the definition for an agent id, or false when the id is
// not present in the loaded document.
func (s *Store) Get(id string) (*model.AgentDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, false
	}
	def, ok := s.doc.Agents[id]
	return def, ok
}

// AgentIDs returns all agent ids in the order the registry file
// declares them.
func (s *Store) AgentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// List returns summaries for every registered agent in file order.
func (s *Store) List() []model.AgentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AgentSummary, 0, len(s.order))
	for _, id := range s.order {
		def, ok := s.doc.Agents[id]
		if !ok {
			continue
		}
		out = append(out, model.AgentSummary{
			ID:          id,
			Name:        def.Name,
			Description: def.Description,
			Enabled:     def.IsEnabled(),
		})
	}
	return out
}

// Settings returns the document settings block. The zero value is
// returned before Load so callers always get usable defaults.
func (s *Store) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return model.Settings{}
	}
	return s.doc.Settings
}

// DefaultModel returns the configured default completion model, or the
// empty string when the document does not set one.
func (s *Store) DefaultModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return ""
	}
	return s.doc.APIConfig.Claude.DefaultModel
}

// SetEnabled flips an agent's enabled flag and persists the change. It
// returns ErrAgentNotFound when the id is unknown; in that case the
// file is left untouched.
func (s *Store) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return fmt.Errorf("registry: set enabled before load")
	}
	def, ok := s.doc.Agents[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	def.Enabled = &enabled
	if err := s.writeDocument(s.doc); err != nil {
		return err
	}
	s.logger.Info("agent enabled flag updated", "agent_id", id, "enabled", enabled)
	return nil
}
