package keystore

import "fmt"

// Key identifies one field of a stored credential.
// The numeric order of the constants is the order fields are written in.
type Key int

const (
	KeyProtocol Key = iota
	KeyUser
	KeyServer
	KeyPath
	KeyPort
	KeyRealm
	KeyAuthType

	keyCount
)

var keyNames = [keyCount]string{
	KeyProtocol: "protocol",
	KeyUser:     "user",
	KeyServer:   "server",
	KeyPath:     "path",
	KeyPort:     "port",
	KeyRealm:    "realm",
	KeyAuthType: "authtype",
}

// Keys returns every field key in wire order.
func Keys() []Key {
	keys := make([]Key, 0, keyCount)
	for k := Key(0); k < keyCount; k++ {
		keys = append(keys, k)
	}
	return keys
}

// Valid reports whether k is one of the known field keys.
func (k Key) Valid() bool {
	return k >= 0 && k < keyCount
}

func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// ParseKey maps a field name such as "server" to its Key.
func ParseKey(name string) (Key, error) {
	for k := Key(0); k < keyCount; k++ {
		if keyNames[k] == name {
			return k, nil
		}
	}
	return -1, fmt.Errorf("unknown field key %q", name)
}
