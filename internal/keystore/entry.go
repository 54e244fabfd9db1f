package keystore

import (
	"context"
	"io"
	"strings"
)

// Values maps field keys to their text values. A key that is absent is unset.
type Values map[Key]string

// Clone returns an independent copy of v.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

// Matches reports whether every field set in query is set in v with an
// identical value. Fields absent from query are not compared.
func (v Values) Matches(query Values) bool {
	for k, want := range query {
		got, ok := v[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Equal reports whether v and other set exactly the same fields to the same values.
func (v Values) Equal(other Values) bool {
	return len(v) == len(other) && v.Matches(other)
}

// String renders the set fields in wire order as "key=value" pairs.
func (v Values) String() string {
	var b strings.Builder
	for _, k := range Keys() {
		s, ok := v[k]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k.String())
		b.WriteByte('=')
		b.WriteString(s)
	}
	return b.String()
}

// Entry is one stored credential.
// An entry without a secret is a tombstone and is never persisted.
type Entry struct {
	Values Values
	Secret []byte
}

// Live reports whether the entry still holds a secret.
func (e *Entry) Live() bool {
	return len(e.Secret) > 0
}

// SetSecret replaces the secret with a private copy of secret.
func (e *Entry) SetSecret(secret []byte) {
	e.wipe()
	e.Secret = append([]byte(nil), secret...)
}

// Clear zeroes the secret and drops the values, turning e into a tombstone.
func (e *Entry) Clear() {
	e.wipe()
	e.Secret = nil
	e.Values = nil
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	return &Entry{
		Values: e.Values.Clone(),
		Secret: append([]byte(nil), e.Secret...),
	}
}

func (e *Entry) wipe() {
	for i := range e.Secret {
		e.Secret[i] = 0
	}
}

// Keystore is implemented by every credential backend.
type Keystore interface {
	io.Closer

	// Store inserts an entry or replaces the secret of the entry whose fields
	// equal values exactly
	Store(ctx context.Context, values Values, secret []byte) error

	// Find returns copies of all live entries matching query, in insertion order.
	// An empty result is not an error
	Find(ctx context.Context, query Values) ([]*Entry, error)

	// Remove deletes all entries matching query and returns how many were removed
	Remove(ctx context.Context, query Values) (int, error)
}
