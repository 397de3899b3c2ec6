package db

import "testing"

func TestIndexBuilder_Build(t *testing.T) {
	def, err := NewIndex("mentors:idx").
		Prefix("mentormatch:mentor:").
		Tag("expertise", ",").
		Text("name").
		VectorHNSW("vector", 1024, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name != "mentors:idx" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Prefixes) != 1 || def.Prefixes[0] != "mentormatch:mentor:" {
		t.Errorf("prefixes = %v", def.Prefixes)
	}
	if len(def.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(def.Fields))
	}
	vec := def.Fields[2]
	if vec.Type != IndexFieldVector || vec.VectorDim != 1024 || vec.VectorAlgo != VectorHNSW {
		t.Errorf("vector field = %+v", vec)
	}
}

func TestIndexBuilder_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		build func() (*IndexDefinition, error)
	}{
		{"empty name", func() (*IndexDefinition, error) {
			return NewIndex("").Text("f").Build()
		}},
		{"bad identifier", func() (*IndexDefinition, error) {
			return NewIndex("bad name!").Text("f").Build()
		}},
		{"no fields", func() (*IndexDefinition, error) {
			return NewIndex("idx").Build()
		}},
		{"duplicate field", func() (*IndexDefinition, error) {
			return NewIndex("idx").Text("f").Tag("f", ",").Build()
		}},
		{"zero dim vector", func() (*IndexDefinition, error) {
			return NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 16, 200).Build()
		}},
	}
	for _, tc := range cases {
		if _, err := tc.build(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"mentors:idx", "a_b-c", "ABC123"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "has space", "semi;colon", "star*"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = true, want false", s)
		}
	}
}
