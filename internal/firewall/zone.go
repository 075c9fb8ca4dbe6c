package firewall

import "strings"

// singleValueKeys are list-all fields that hold one value rather than a list.
var singleValueKeys = map[string]bool{
	"target":               true,
	"icmp-block-inversion": true,
	"masquerade":           true,
}

// ZoneInfo is the structured form of `firewall-cmd --list-all`.
// Config values are either string (single-value keys) or []string.
type ZoneInfo struct {
	Title  string         `json:"title"`
	Config map[string]any `json:"config"`
}

// ParseListAll parses list-all output. The first line is the zone title,
// every following non-empty line is "key: value".
func ParseListAll(out string) *ZoneInfo {
	lines := strings.Split(out, "\n")
	info := &ZoneInfo{Config: make(map[string]any)}
	if len(lines) == 0 {
		return info
	}
	info.Title = strings.TrimSpace(lines[0])

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if singleValueKeys[key] {
			info.Config[key] = value
		} else {
			info.Config[key] = strings.Fields(value)
		}
	}
	return info
}

// Values returns a multi-value field, or nil.
func (z *ZoneInfo) Values(key string) []string {
	v, _ := z.Config[key].([]string)
	return v
}

// Value returns a single-value field, or "".
func (z *ZoneInfo) Value(key string) string {
	v, _ := z.Config[key].(string)
	return v
}

// Sources returns the zone's bound sources.
func (z *ZoneInfo) Sources() []string {
	return z.Values("sources")
}
