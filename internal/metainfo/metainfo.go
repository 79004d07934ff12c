package metainfo

import "sort"

// Metainfo is the metadata record of one file: reserved keys hold lists of
// typed values.
type Metainfo map[string][]Value

// New returns an empty record.
func New() Metainfo {
	return make(Metainfo)
}

// Get returns the first value at key, or nil when the key is absent.
func (m Metainfo) Get(key string) Value {
	values := m[key]
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// List returns all values at key; absent keys yield an empty slice.
func (m Metainfo) List(key string) []Value {
	return append([]Value(nil), m[key]...)
}

// FirstString returns the first string value at key.
func (m Metainfo) FirstString(key string) (string, bool) {
	v, ok := m.Get(key).(StringValue)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// Strings returns every string value at key, skipping other kinds.
func (m Metainfo) Strings(key string) []string {
	var out []string
	for _, v := range m[key] {
		if sv, ok := v.(StringValue); ok {
			out = append(out, sv.Value)
		}
	}
	return out
}

// Add appends values to a key.
func (m Metainfo) Add(key string, values ...Value) {
	m[key] = append(m[key], values...)
}

// Replace drops any existing values at key and installs the given ones.
func (m Metainfo) Replace(key string, values ...Value) {
	m[key] = append([]Value(nil), values...)
}

// Remove deletes a key.
func (m Metainfo) Remove(key string) {
	delete(m, key)
}

// Has reports whether the key holds at least one value.
func (m Metainfo) Has(key string) bool {
	return len(m[key]) > 0
}

// Keys returns the record's keys in sorted order.
func (m Metainfo) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
