package domain

// CanonicalURL is the normalized host+path key used for membership tests.
type CanonicalURL string

// String returns the key as a plain string.
func (c CanonicalURL) String() string { return string(c) }

// Bytes returns the key bytes fed to the filter hash.
func (c CanonicalURL) Bytes() []byte { return []byte(c) }

// AllowList is a set of canonical URLs that override a positive membership
// result. The zero value is an empty, usable list.
type AllowList struct {
	keys map[CanonicalURL]struct{}
}

// NewAllowList builds an AllowList from already-canonical keys. Empty keys
// are ignored.
func NewAllowList(keys ...CanonicalURL) AllowList {
	m := make(map[CanonicalURL]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		m[k] = struct{}{}
	}
	return AllowList{keys: m}
}

// Contains reports exact membership of key.
func (a AllowList) Contains(key CanonicalURL) bool {
	_, ok := a.keys[key]
	return ok
}

// Len returns the number of entries.
func (a AllowList) Len() int { return len(a.keys) }
