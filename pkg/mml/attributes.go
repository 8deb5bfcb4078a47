package mml

// Attr is a single attribute.
type Attr struct {
	Key   string
	Value string
}

// Attributes is an ordered attribute list with unique keys. Insertion order
// is preserved for serialization. The zero value is an empty list.
type Attributes []Attr

// Attrs builds an Attributes list from alternating key/value pairs. A
// trailing key without a value is ignored. Later duplicates overwrite
// earlier values in place.
func Attrs(kv ...string) Attributes {
	var a Attributes
	for i := 0; i+1 < len(kv); i += 2 {
		a.Set(kv[i], kv[i+1])
	}
	return a
}

func (a Attributes) index(key string) int {
	for i := range a {
		if a[i].Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value for key and whether it is present.
func (a Attributes) Get(key string) (string, bool) {
	if i := a.index(key); i >= 0 {
		return a[i].Value, true
	}
	return "", false
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	return a.index(key) >= 0
}

// Set replaces the value of an existing key in place, or appends a new one.
func (a *Attributes) Set(key, value string) {
	if i := a.index(key); i >= 0 {
		(*a)[i].Value = value
		return
	}
	*a = append(*a, Attr{Key: key, Value: value})
}

// Delete removes key, keeping the order of the rest.
func (a *Attributes) Delete(key string) {
	i := a.index(key)
	if i < 0 {
		return
	}
	*a = append((*a)[:i:i], (*a)[i+1:]...)
}

// Len returns the number of attributes.
func (a Attributes) Len() int {
	return len(a)
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if len(a) == 0 {
		return nil
	}
	out := make(Attributes, len(a))
	copy(out, a)
	return out
}
