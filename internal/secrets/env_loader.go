package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader returns a Loader that resolves each key from the environment.
// A key can be satisfied two ways, checked in order:
//
//	KEY       the value itself
//	KEY_FILE  a path whose trimmed contents are the value
//
// The _FILE form is how docker and kubernetes mount secrets, which keeps
// webhook URLs and SMTP passwords out of `docker inspect` output. Keys
// resolved by neither form are omitted from the result.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			v, err := resolveEnv(k)
			if err != nil {
				return nil, err
			}
			if v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

func resolveEnv(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	path := os.Getenv(key + "_FILE")
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s_FILE: %w", key, err)
	}
	return strings.TrimSpace(string(raw)), nil
}
