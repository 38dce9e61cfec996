package templates

import (
	"testing"

	"postcraft/pkg/store"
)

func TestDefaultsAreComplete(t *testing.T) {
	for _, tpl := range Defaults() {
		if tpl.Name == "" || tpl.Platform == "" || tpl.ContentType == "" || tpl.Template == "" {
			t.Fatalf("incomplete template: %+v", tpl)
		}
		if tpl.ID != 0 {
			t.Fatalf("seed template %q carries an id", tpl.Name)
		}
	}
}

func TestSeedAssignsSequentialIDs(t *testing.T) {
	s := store.NewMemoryStore()
	seeded, err := Seed(s)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(seeded) != len(Defaults()) {
		t.Fatalf("seeded %d, want %d", len(seeded), len(Defaults()))
	}
	for i, tpl := range seeded {
		if tpl.ID != int64(i+1) {
			t.Fatalf("template %d id = %d", i, tpl.ID)
		}
	}
	ig, err := s.ListTemplatesByPlatform("instagram")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ig) != 2 {
		t.Fatalf("instagram templates = %d, want 2", len(ig))
	}
}
