package domain

import (
	"errors"
	"testing"
)

func TestMentorProfile_Validate(t *testing.T) {
	valid := MentorProfile{ID: "m1", Name: "Ada", Expertise: []string{"Go"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name    string
		profile MentorProfile
	}{
		{"missing id", MentorProfile{Name: "Ada", Expertise: []string{"go"}}},
		{"blank id", MentorProfile{ID: "  ", Name: "Ada", Expertise: []string{"go"}}},
		{"missing name", MentorProfile{ID: "m1", Expertise: []string{"go"}}},
		{"no expertise", MentorProfile{ID: "m1", Name: "Ada"}},
		{"blank expertise", MentorProfile{ID: "m1", Name: "Ada", Expertise: []string{"  ", ""}}},
	}
	for _, tc := range cases {
		err := tc.profile.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestNormalizeExpertise(t *testing.T) {
	got := NormalizeExpertise([]string{" Go ", "go", "Databases", "", "GO", "ml"})
	want := []string{"go", "databases", "ml"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEmbeddingText_Deterministic(t *testing.T) {
	p := MentorProfile{
		ID:          "m1",
		Name:        "Ada",
		Expertise:   []string{"Go", " distributed systems "},
		Description: "  Backend engineer.  ",
	}
	want := "Expertise: go, distributed systems. Description: Backend engineer."
	if got := p.EmbeddingText(); got != want {
		t.Errorf("EmbeddingText() = %q, want %q", got, want)
	}
	if p.EmbeddingText() != p.EmbeddingText() {
		t.Error("EmbeddingText must be deterministic")
	}
}
