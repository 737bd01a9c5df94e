package plugin

import (
	"testing"
	"time"
)

func TestConfigAccessorsDefaults(t *testing.T) {
	c := Config{}
	if got := c.GetString("missing", "def"); got != "def" {
		t.Fatalf("GetString default = %q, want %q", got, "def")
	}
	if got := c.GetInt("missing", 7); got != 7 {
		t.Fatalf("GetInt default = %d, want 7", got)
	}
	if got := c.GetBool("missing", true); got != true {
		t.Fatalf("GetBool default = %v, want true", got)
	}
	if got := c.GetDuration("missing", 5*time.Second); got != 5*time.Second {
		t.Fatalf("GetDuration default = %v, want 5s", got)
	}
}

func TestConfigAccessorsCoercion(t *testing.T) {
	c := Config{
		"count":    float64(42), // decoded JSON/YAML numbers arrive as float64
		"timeout":  "250ms",
		"tags":     []any{"a", "b"},
		"headers":  map[string]any{"x": "y"},
		"enabled":  true,
		"greeting": "hi",
	}
	if got := c.GetInt("count", 0); got != 42 {
		t.Fatalf("GetInt coercion = %d, want 42", got)
	}
	if got := c.GetDuration("timeout", 0); got != 250*time.Millisecond {
		t.Fatalf("GetDuration = %v, want 250ms", got)
	}
	if got := c.GetStringSlice("tags"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("GetStringSlice = %v", got)
	}
	if got := c.GetStringMap("headers"); got["x"] != "y" {
		t.Fatalf("GetStringMap = %v", got)
	}
	if !c.GetBool("enabled", false) {
		t.Fatalf("GetBool = false, want true")
	}
	s, err := c.RequireString("greeting")
	if err != nil || s != "hi" {
		t.Fatalf("RequireString = %q, %v", s, err)
	}
	if _, err := c.RequireString("missing"); err == nil {
		t.Fatalf("RequireString(missing) should error")
	}
}
