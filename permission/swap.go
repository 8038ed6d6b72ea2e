package permission

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/milk9111/tether/coupling"
)

// Swap forwards checks to a policy that can be replaced while the manager
// runs, e.g. when a policy script is edited.
type Swap struct {
	cur atomic.Pointer[holder]
}

type holder struct {
	p coupling.Permissions
}

var _ coupling.Permissions = (*Swap)(nil)

func NewSwap(p coupling.Permissions) *Swap {
	s := &Swap{}
	s.Set(p)
	return s
}

func (s *Swap) Set(p coupling.Permissions) {
	s.cur.Store(&holder{p: p})
}

// HasPermission denies every non-blank key while no policy is set.
func (s *Swap) HasPermission(id coupling.ActorID, key string) bool {
	if strings.TrimSpace(key) == "" {
		return true
	}
	h := s.cur.Load()
	if h == nil || h.p == nil {
		return false
	}
	return h.p.HasPermission(id, key)
}

// ParseGrants reads "id=key,key;id=key" into a grant table.
func ParseGrants(s string) (map[coupling.ActorID][]string, error) {
	out := make(map[coupling.ActorID][]string)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idPart, keys, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("permission: grant %q: missing '='", entry)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(idPart), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("permission: grant %q: bad actor id", entry)
		}
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out[coupling.ActorID(id)] = append(out[coupling.ActorID(id)], k)
			}
		}
	}
	return out, nil
}
