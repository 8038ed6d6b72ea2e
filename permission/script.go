package permission

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/rs/zerolog"

	"github.com/milk9111/tether/coupling"
)

// Script is a permission policy written in tengo. Each check sets the
// globals actor (int), permission (string) and grants (array of strings) and
// reads back the bool global allow, which starts false.
type Script struct {
	mu       sync.Mutex
	compiled *tengo.Compiled
	grants   GrantSource
	log      zerolog.Logger
}

var _ coupling.Permissions = (*Script)(nil)

// NewScript compiles src. grants may be nil.
func NewScript(src []byte, grants GrantSource, logger *zerolog.Logger) (*Script, error) {
	script := tengo.NewScript(src)
	_ = script.Add("actor", 0)
	_ = script.Add("permission", "")
	_ = script.Add("grants", []any{})
	_ = script.Add("allow", false)
	script.SetImports(stdlib.GetModuleMap("text", "math", "times", "enum"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("permission: compile script: %w", err)
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "permission").Logger()
	}
	return &Script{compiled: compiled, grants: grants, log: l}, nil
}

// LoadScript compiles the policy stored at path.
func LoadScript(path string, grants GrantSource, logger *zerolog.Logger) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("permission: read %s: %w", path, err)
	}
	return NewScript(src, grants, logger)
}

// HasPermission runs the policy. A failing script denies.
func (s *Script) HasPermission(id coupling.ActorID, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	var granted []any
	if s.grants != nil {
		for _, g := range s.grants.Grants(id) {
			granted = append(granted, g)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.run(id, key, granted); err != nil {
		s.log.Error().Err(err).Stringer("actor", id).Str("permission", key).Msg("permission script failed")
		return false
	}
	return s.compiled.Get("allow").Bool()
}

func (s *Script) run(id coupling.ActorID, key string, granted []any) error {
	if granted == nil {
		granted = []any{}
	}
	if err := s.compiled.Set("actor", int64(id)); err != nil {
		return err
	}
	if err := s.compiled.Set("permission", key); err != nil {
		return err
	}
	if err := s.compiled.Set("grants", granted); err != nil {
		return err
	}
	if err := s.compiled.Set("allow", false); err != nil {
		return err
	}
	return s.compiled.Run()
}
