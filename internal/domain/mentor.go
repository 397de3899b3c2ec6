package domain

import (
	"fmt"
	"strings"
)

// MentorProfile is a mentor's indexed profile. The ID is stable and unique;
// an upsert replaces the stored profile wholesale, never a partial merge.
type MentorProfile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Expertise   []string `json:"expertise"`
	Description string   `json:"description"`
	UpdatedAt   int64    `json:"updated_at"` // unix millis
}

// Validate checks required profile fields.
func (p *MentorProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: mentor id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: mentor name is required", ErrValidation)
	}
	if len(NormalizeExpertise(p.Expertise)) == 0 {
		return fmt.Errorf("%w: at least one expertise token is required", ErrValidation)
	}
	return nil
}

// EmbeddingText returns the text the profile embedding is derived from.
// It is a pure function of the profile fields, so identical profiles
// always embed to identical vectors.
func (p *MentorProfile) EmbeddingText() string {
	return fmt.Sprintf(
		"Expertise: %s. Description: %s",
		strings.Join(NormalizeExpertise(p.Expertise), ", "),
		strings.TrimSpace(p.Description),
	)
}

// NormalizeExpertise trims, lowercases, and deduplicates skill tokens,
// preserving first-seen order.
func NormalizeExpertise(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
