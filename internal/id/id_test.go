package id

import (
	"strings"
	"testing"
)

func TestPublicIDIsFreshPerCall(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		v := PublicID()
		if !strings.HasPrefix(v, "edit_") || len(v) != len("edit_")+32 {
			t.Fatalf("unexpected public id %q", v)
		}
		if _, dup := seen[v]; dup {
			t.Fatalf("public id %q reused", v)
		}
		seen[v] = struct{}{}
	}
}

func TestTempName(t *testing.T) {
	name := TempName()
	if !strings.HasPrefix(name, "temp_") || !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("unexpected temp name %q", name)
	}
	if strings.Contains(name, "-") {
		t.Fatalf("expected hex only, got %q", name)
	}
}
