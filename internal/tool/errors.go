package tool

import (
	"fmt"
	"strings"
)

// DuplicateNameError is returned when a second descriptor is registered under
// an existing name. The registry is constructed once at startup, so this is a
// programming error surfaced at boot, not at dispatch time.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when a requested name does not resolve. It
// carries the full list of registered names so a registry/request mismatch is
// diagnosable from the error alone.
type UnknownToolError struct {
	Name       string
	Registered []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q (registered: %s)", e.Name, strings.Join(e.Registered, ", "))
}

// CollaboratorError lets a capability report a classified failure. The class
// replaces the generic collaborator kind in the resulting Failure message.
type CollaboratorError struct {
	Class string
	Err   error
}

func (e *CollaboratorError) Error() string {
	if e.Err == nil {
		return e.Class
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
