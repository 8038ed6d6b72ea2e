// Package permission decides whether an actor may start a coupling.
package permission

import (
	"slices"
	"strings"
	"sync"

	"github.com/milk9111/tether/coupling"
)

// Wildcard grants every permission.
const Wildcard = "*"

// GrantSource lists the raw grants of an actor.
type GrantSource interface {
	Grants(id coupling.ActorID) []string
}

// Static is an in-memory grant table. A grant ending in ".*" covers every
// key below that prefix.
type Static struct {
	mu     sync.RWMutex
	grants map[coupling.ActorID]map[string]struct{}
}

var (
	_ coupling.Permissions = (*Static)(nil)
	_ GrantSource          = (*Static)(nil)
)

func NewStatic(grants map[coupling.ActorID][]string) *Static {
	s := &Static{grants: make(map[coupling.ActorID]map[string]struct{})}
	for id, keys := range grants {
		s.Grant(id, keys...)
	}
	return s
}

func (s *Static) Grant(id coupling.ActorID, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.grants[id]
	if !ok {
		set = make(map[string]struct{})
		s.grants[id] = set
	}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
}

func (s *Static) Revoke(id coupling.ActorID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants[id], key)
}

// Grants returns the sorted grants of id.
func (s *Static) Grants(id coupling.ActorID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.grants[id]))
	for k := range s.grants[id] {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// HasPermission reports whether id holds key. An empty key is always held.
func (s *Static) HasPermission(id coupling.ActorID, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for grant := range s.grants[id] {
		if Matches(grant, key) {
			return true
		}
	}
	return false
}

// Matches reports whether grant covers key.
func Matches(grant, key string) bool {
	switch {
	case grant == Wildcard || grant == key:
		return true
	case strings.HasSuffix(grant, ".*"):
		return strings.HasPrefix(key, strings.TrimSuffix(grant, "*"))
	}
	return false
}
