package host

import "strings"

// StandardKeys lists the clip metadata fields a media pool exposes by
// default. Backends may use it as their accepted key set.
var StandardKeys = []string{
	"Description",
	"Comments",
	"Keywords",
	"Scene",
	"Shot",
	"Take",
	"Angle",
	"Camera #",
	"Reel Number",
	"Roll Card #",
	"Good Take",
	"Shoot Day",
	"Date Recorded",
	"Camera Type",
	"Camera Operator",
	"Director",
	"Producer",
	"Location",
	"Setup",
	"Unit Name",
	"Lens Type",
	"Lens Notes",
	"Distance",
	"Camera FPS",
	"Shutter",
	"ISO",
	"White Point (Kelvin)",
	"Flags",
	"Clip Color",
}

// KeySet is a case-insensitive set of metadata keys. The zero value accepts
// every key.
type KeySet struct {
	keys map[string]struct{}
}

// NewKeySet builds a set from keys. An empty list yields an accept-all set.
func NewKeySet(keys []string) KeySet {
	if len(keys) == 0 {
		return KeySet{}
	}
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return KeySet{keys: m}
}

// Allows reports whether key is in the set.
func (s KeySet) Allows(key string) bool {
	if s.keys == nil {
		return true
	}
	_, ok := s.keys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}
