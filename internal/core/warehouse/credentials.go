package warehouse

import (
	"fmt"
	"maps"
)

// Credentials is the key/value credential set fetched from the secret store.
type Credentials map[string]string

// Get returns the value for key, or "".
func (c Credentials) Get(key string) string {
	return c[key]
}

// Require returns the values for keys in order, or an error listing the
// missing ones.
func (c Credentials) Require(keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	var missing []string
	for i, k := range keys {
		v := c[k]
		if v == "" {
			missing = append(missing, k)
		}
		values[i] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("credentials missing %v", missing)
	}
	return values, nil
}

func (c Credentials) clone() Credentials {
	return maps.Clone(c)
}
