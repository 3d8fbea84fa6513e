package registry

import "errors"

// ErrConfigMissing is returned when the registry file does not exist.
var ErrConfigMissing = errors.New("registry: config file not found")

// ErrConfigInvalid is returned when the registry file exists but cannot
// be parsed into a registry document.
var ErrConfigInvalid = errors.New("registry: config file invalid")

// ErrAgentNotFound is returned when a requested agent id is not in the
// registry.
var ErrAgentNotFound = errors.New("registry: agent not found")
