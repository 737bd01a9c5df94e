package plugin

import (
	"fmt"
	"time"
)

// Config wraps the opaque config map a plugin record carries, offering
// typed accessors with defaults instead of repeating map-probing idioms
// at every plugin call site.
type Config map[string]any

// GetString returns the string at key, or def if absent/wrong type.
func (c Config) GetString(key, def string) string {
	if v, ok := c[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// RequireString returns the string at key, or a ConfigError if it is
// absent or empty.
func (c Config) RequireString(key string) (string, error) {
	s := c.GetString(key, "")
	if s == "" {
		return "", &ConfigError{Msg: fmt.Sprintf("missing required config key %q", key)}
	}
	return s, nil
}

// GetInt returns the int at key, accepting int, int64 and float64 (the
// shape YAML/JSON decoders hand back), or def otherwise.
func (c Config) GetInt(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetFloat returns the float64 at key, or def otherwise.
func (c Config) GetFloat(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// GetBool returns the bool at key, or def otherwise.
func (c Config) GetBool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// GetDuration parses a duration string ("500ms", "5s") at key, or returns
// def if absent or unparsable.
func (c Config) GetDuration(key string, def time.Duration) time.Duration {
	s := c.GetString(key, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetStringSlice returns a []string at key, accepting []string and
// []any-of-strings (the shape YAML decoders produce), or nil otherwise.
func (c Config) GetStringSlice(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GetStringMap returns a map[string]string at key, coercing any
// map[string]any values found to strings via fmt.Sprintf.
func (c Config) GetStringMap(key string) map[string]string {
	out := make(map[string]string)
	switch v := c[key].(type) {
	case map[string]string:
		for k, val := range v {
			out[k] = val
		}
	case map[string]any:
		for k, val := range v {
			if s, ok := val.(string); ok {
				out[k] = s
			} else {
				out[k] = fmt.Sprintf("%v", val)
			}
		}
	}
	return out
}

// GetMap returns the map[string]any at key, or nil otherwise.
func (c Config) GetMap(key string) map[string]any {
	if v, ok := c[key].(map[string]any); ok {
		return v
	}
	return nil
}

// GetSlice returns the []any at key, or nil otherwise.
func (c Config) GetSlice(key string) []any {
	if v, ok := c[key].([]any); ok {
		return v
	}
	return nil
}
