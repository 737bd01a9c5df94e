package logevent

import "testing"

func TestGetSetDottedPath(t *testing.T) {
	e := New("test", "")
	e.Set("user.name", "ada")
	v, ok := e.Get("user.name")
	if !ok || v != "ada" {
		t.Fatalf("Get(user.name) = %v, %v; want ada, true", v, ok)
	}
}

func TestGetMissingThroughNonMapping(t *testing.T) {
	e := New("test", "")
	e.Set("level", "INFO")
	if _, ok := e.Get("level.sub"); ok {
		t.Fatalf("Get through a non-mapping should miss, not panic or succeed")
	}
}

func TestSetOverwritesNonMappingIntermediate(t *testing.T) {
	e := New("test", "")
	e.Set("a", "scalar")
	e.Set("a.b", 1)
	v, ok := e.Get("a.b")
	if !ok || v != 1 {
		t.Fatalf("Set should replace a non-mapping intermediate; got %v, %v", v, ok)
	}
}

func TestDelete(t *testing.T) {
	e := New("test", "")
	e.Set("a.b", 1)
	e.Delete("a.b")
	if _, ok := e.Get("a.b"); ok {
		t.Fatalf("expected a.b to be deleted")
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := New("test", "")
	e.Set("nested.value", 1)
	e.AddTag("t1")
	clone := e.Clone()
	clone.Set("nested.value", 2)
	clone.AddTag("t2")

	if v, _ := e.Get("nested.value"); v != 1 {
		t.Fatalf("mutating clone must not affect original, got %v", v)
	}
	if e.HasTag("t2") {
		t.Fatalf("mutating clone tags must not affect original")
	}
}

func TestTagsRoundTrip(t *testing.T) {
	e := New("test", "")
	e.AddTag("sampled")
	if !e.HasTag("sampled") {
		t.Fatalf("expected tag to be present")
	}
	list := e.TagList()
	if len(list) != 1 || list[0] != "sampled" {
		t.Fatalf("TagList = %v", list)
	}
}

func TestBatchEvents(t *testing.T) {
	e1, e2 := New("a", ""), New("a", "")
	b := NewBatch("p1", []*LogEvent{e1, e2})
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if len(b.Events()) != 2 {
		t.Fatalf("Events() length = %d, want 2", len(b.Events()))
	}
}
