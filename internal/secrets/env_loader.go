package secrets

import "os"

// EnvLoader returns a Loader that reads the given environment variables.
// A variable that is unset or empty falls back to its entry in defaults,
// and keys with neither are omitted from the result map.
func EnvLoader(defaults map[string]string, keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			} else if d := defaults[k]; d != "" {
				vals[k] = d
			}
		}
		return vals, nil
	}
}
