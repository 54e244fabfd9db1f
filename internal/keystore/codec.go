package keystore

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// A line is "{key1:VALUE1_B64,key2:VALUE2_B64}:SECRET_B64".
const (
	lineOpen      = '{'
	lineClose     = '}'
	pairSeparator = ','
	keySeparator  = ':'

	valueTerminators = ",}"
)

// EncodeEntry renders e as a single line without a trailing newline.
// Fields are written in Key order regardless of how they were set.
// Entries that cannot be represented are rejected with ErrInvalidEntry;
// base64 encoding itself cannot fail.
func EncodeEntry(e *Entry) (string, error) {
	if !e.Live() {
		return "", fmt.Errorf("%w: entry has no secret", ErrInvalidEntry)
	}
	if len(e.Values) == 0 {
		return "", fmt.Errorf("%w: entry has no fields", ErrInvalidEntry)
	}
	for k := range e.Values {
		if !k.Valid() {
			return "", fmt.Errorf("%w: unknown field %s", ErrInvalidEntry, k)
		}
	}

	var b strings.Builder
	b.WriteByte(lineOpen)
	first := true
	for _, k := range Keys() {
		v, ok := e.Values[k]
		if !ok {
			continue
		}
		if v == "" {
			return "", fmt.Errorf("%w: field %s is empty", ErrInvalidEntry, k)
		}
		if !first {
			b.WriteByte(pairSeparator)
		}
		first = false

		b.WriteString(k.String())
		b.WriteByte(keySeparator)
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(v)))
	}
	b.WriteByte(lineClose)
	b.WriteByte(keySeparator)
	b.WriteString(base64.StdEncoding.EncodeToString(e.Secret))

	return b.String(), nil
}

// DecodeEntry parses a line produced by EncodeEntry.
// Every parse failure, including undecodable base64, wraps ErrCorruptFormat.
func DecodeEntry(line string) (*Entry, error) {
	if len(line) == 0 || line[0] != lineOpen {
		return nil, fmt.Errorf("%w: line does not start with %q", ErrCorruptFormat, lineOpen)
	}
	p := line[1:]

	values := make(Values)
	last := Key(-1)
	closed := false
	for p != "" && !closed {
		// read key
		i := strings.IndexByte(p, keySeparator)
		if i <= 0 {
			return nil, fmt.Errorf("%w: missing field key", ErrCorruptFormat)
		}
		key, err := ParseKey(p[:i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFormat, err)
		}
		if key <= last {
			return nil, fmt.Errorf("%w: field %s out of order", ErrCorruptFormat, key)
		}
		last = key
		p = p[i+1:]

		// read value
		i = strings.IndexAny(p, valueTerminators)
		if i <= 0 {
			return nil, fmt.Errorf("%w: missing value for field %s", ErrCorruptFormat, key)
		}
		closed = p[i] == lineClose
		raw, err := base64.StdEncoding.DecodeString(p[:i])
		if err != nil || len(raw) == 0 {
			return nil, fmt.Errorf("%w: bad value for field %s", ErrCorruptFormat, key)
		}
		values[key] = string(raw)
		p = p[i+1:]
	}
	if !closed {
		return nil, fmt.Errorf("%w: unterminated field list", ErrCorruptFormat)
	}

	// read secret
	if p == "" || p[0] != keySeparator {
		return nil, fmt.Errorf("%w: missing secret", ErrCorruptFormat)
	}
	secret, err := base64.StdEncoding.DecodeString(p[1:])
	if err != nil || len(secret) == 0 {
		return nil, fmt.Errorf("%w: bad secret", ErrCorruptFormat)
	}

	return &Entry{Values: values, Secret: secret}, nil
}
