package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CategoryEntry is one menu entry.
type CategoryEntry struct {
	Key  string
	Name string
}

// CategoryList is the ordered mapping from category key to display name.
// The order defines the menu order and survives a JSON round trip.
type CategoryList struct {
	entries []CategoryEntry
	index   map[string]int
}

// NewCategoryList builds a list from entries in the given order.
func NewCategoryList(entries ...CategoryEntry) CategoryList {
	var l CategoryList
	for _, e := range entries {
		l.Set(e.Key, e.Name)
	}
	return l
}

// Len returns the number of categories.
func (l *CategoryList) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in menu order.
func (l *CategoryList) Entries() []CategoryEntry {
	return append([]CategoryEntry(nil), l.entries...)
}

// Keys returns the category keys in menu order.
func (l *CategoryList) Keys() []string {
	keys := make([]string, len(l.entries))
	for i, e := range l.entries {
		keys[i] = e.Key
	}
	return keys
}

// Has reports whether key is declared.
func (l *CategoryList) Has(key string) bool {
	_, ok := l.index[key]
	return ok
}

// Name returns the display name of key.
func (l *CategoryList) Name(key string) (string, bool) {
	i, ok := l.index[key]
	if !ok {
		return "", false
	}
	return l.entries[i].Name, true
}

// Set renames an existing key in place or appends a new one.
func (l *CategoryList) Set(key, name string) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[key]; ok {
		l.entries[i].Name = name
		return
	}
	l.index[key] = len(l.entries)
	l.entries = append(l.entries, CategoryEntry{Key: key, Name: name})
}

// Delete removes key, reporting whether it was present.
func (l *CategoryList) Delete(key string) bool {
	i, ok := l.index[key]
	if !ok {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.reindex()
	return true
}

// Move shifts key by delta positions (-1 up, +1 down). It reports false when
// the key is unknown or the move would leave the list bounds.
func (l *CategoryList) Move(key string, delta int) bool {
	i, ok := l.index[key]
	if !ok {
		return false
	}
	j := i + delta
	if j < 0 || j >= len(l.entries) {
		return false
	}
	l.entries[i], l.entries[j] = l.entries[j], l.entries[i]
	l.reindex()
	return true
}

func (l *CategoryList) reindex() {
	l.index = make(map[string]int, len(l.entries))
	for i, e := range l.entries {
		l.index[e.Key] = i
	}
}

// MarshalJSON writes the entries as a JSON object in menu order.
func (l CategoryList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range l.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping member order.
func (l *CategoryList) UnmarshalJSON(data []byte) error {
	*l = CategoryList{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("categories_list: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("categories_list: unexpected token %v", tok)
		}
		var name string
		if err := dec.Decode(&name); err != nil {
			return fmt.Errorf("categories_list[%s]: %w", key, err)
		}
		l.Set(key, name)
	}
	_, err = dec.Token()
	return err
}
