package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathlight/mentormatch/internal/domain"
)

// Service maintains the mentor profile embedding index and answers
// nearest-neighbor queries over it.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates an embedding index service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Init ensures the backing vector index exists.
func (s *Service) Init(ctx context.Context) error {
	if err := s.repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure mentor index: %w", err)
	}
	return nil
}

// Upsert validates the profile, embeds its text, and stores both. Replacing
// an existing ID overwrites the stored record entirely. The embedding is a
// pure function of the profile text, so repeating an upsert with identical
// content leaves the index unchanged.
func (s *Service) Upsert(ctx context.Context, profile domain.MentorProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.Expertise = domain.NormalizeExpertise(profile.Expertise)

	res, err := s.embed.Embed(ctx, profile.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed profile %s: %w", profile.ID, err)
	}

	if err := s.repo.Upsert(ctx, profile, res.Embedding); err != nil {
		return fmt.Errorf("store profile %s: %w", profile.ID, err)
	}
	return nil
}

// Query embeds the mentee text and returns up to k candidates ordered by
// ascending distance. An empty index yields an empty list, not an error.
// Success probabilities are left at the neutral default; the match pipeline
// fills them in.
func (s *Service) Query(ctx context.Context, text string, k int) ([]domain.MatchCandidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrValidation)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrValidation, k)
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.repo.SearchKNN(ctx, res.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search mentors: %w", err)
	}

	candidates := make([]domain.MatchCandidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, domain.MatchCandidate{
			MentorID:           h.Profile.ID,
			Name:               h.Profile.Name,
			Distance:           h.Distance,
			SuccessProbability: domain.NeutralSuccessProbability,
		})
	}
	return candidates, nil
}

// Get returns a stored mentor profile.
func (s *Service) Get(ctx context.Context, id string) (domain.MentorProfile, error) {
	if id == "" {
		return domain.MentorProfile{}, fmt.Errorf("%w: mentor id is required", domain.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Remove deletes a mentor profile from the index. Historical feedback for
// the mentor survives removal.
func (s *Service) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: mentor id is required", domain.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// Count returns the number of indexed mentors.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
