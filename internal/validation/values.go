package validation

import (
	"fmt"

	"github.com/iudanet/filekeystore/internal/keystore"
)

// ValidateValues checks the field set used as an exact upsert key.
// At least one field must be set, every key must be known and no value may
// be empty: an empty value encodes to nothing and cannot be read back.
func ValidateValues(values keystore.Values) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: at least one field must be set", keystore.ErrInvalidEntry)
	}

	for k, v := range values {
		if !k.Valid() {
			return fmt.Errorf("%w: unknown field %s", keystore.ErrInvalidEntry, k)
		}
		if v == "" {
			return fmt.Errorf("%w: field %s cannot be empty", keystore.ErrInvalidEntry, k)
		}
	}

	return nil
}

// ValidateQuery checks a wildcard query. An empty query matches every entry.
func ValidateQuery(query keystore.Values) error {
	for k := range query {
		if !k.Valid() {
			return fmt.Errorf("%w: unknown field %s", keystore.ErrInvalidEntry, k)
		}
	}

	return nil
}

// ValidateSecret rejects an empty secret, which would be stored as a tombstone.
func ValidateSecret(secret []byte) error {
	if len(secret) == 0 {
		return fmt.Errorf("%w: secret cannot be empty", keystore.ErrInvalidEntry)
	}

	return nil
}
