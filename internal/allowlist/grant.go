package allowlist

import (
	"encoding/json"
	"time"
)

// DefaultDuration is the access window of a grant.
const DefaultDuration = 24 * time.Hour

// Grant is one active allowance for a source within a zone.
type Grant struct {
	Source    string
	GrantedAt time.Time
	Duration  time.Duration
}

// ExpiresAt returns GrantedAt + Duration.
func (g Grant) ExpiresAt() time.Time {
	return g.GrantedAt.Add(g.Duration)
}

// Expired reports whether the grant is due for revocation at now.
func (g Grant) Expired(now time.Time) bool {
	return !g.ExpiresAt().After(now)
}

// grantJSON is the on-disk shape: epoch milliseconds for both fields.
type grantJSON struct {
	IP       string `json:"ip"`
	Added    int64  `json:"added"`
	Duration int64  `json:"duration"`
}

// MarshalJSON encodes the grant in the persisted layout.
func (g Grant) MarshalJSON() ([]byte, error) {
	return json.Marshal(grantJSON{
		IP:       g.Source,
		Added:    g.GrantedAt.UnixMilli(),
		Duration: g.Duration.Milliseconds(),
	})
}

// UnmarshalJSON decodes the persisted layout.
func (g *Grant) UnmarshalJSON(data []byte) error {
	var raw grantJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Source = raw.IP
	g.GrantedAt = time.UnixMilli(raw.Added)
	g.Duration = time.Duration(raw.Duration) * time.Millisecond
	return nil
}

// Pair names a (zone, source) combination.
type Pair struct {
	Zone   string `json:"zone"`
	Source string `json:"source"`
}

func (p Pair) String() string {
	return p.Zone + "/" + p.Source
}

// Allowlist maps zone to its grants. Within a zone each source appears at
// most once; slice order is insertion order.
type Allowlist map[string][]Grant

// Clone returns a deep copy.
func (a Allowlist) Clone() Allowlist {
	out := make(Allowlist, len(a))
	for zone, grants := range a {
		out[zone] = append([]Grant(nil), grants...)
	}
	return out
}

// Len returns the number of grants across all zones.
func (a Allowlist) Len() int {
	n := 0
	for _, grants := range a {
		n += len(grants)
	}
	return n
}
