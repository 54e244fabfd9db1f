package cli

import (
	"fmt"
	"strings"

	"github.com/iudanet/filekeystore/internal/keystore"
)

// parseValues turns FIELD=VALUE arguments into keystore values
func parseValues(args []string) (keystore.Values, error) {
	values := make(keystore.Values, len(args))

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q: expected FIELD=VALUE", arg)
		}

		key, err := keystore.ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %w", arg, err)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("field %s given more than once", key)
		}
		if value == "" {
			return nil, fmt.Errorf("field %s has no value", key)
		}

		values[key] = value
	}

	return values, nil
}

func fieldsHelp() string {
	names := make([]string, 0, len(keystore.Keys()))
	for _, k := range keystore.Keys() {
		names = append(names, k.String())
	}
	return "FIELD is one of: " + strings.Join(names, ", ")
}
