package advisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
)

// Generator produces advisory text for a mentor/mentee pairing.
type Generator interface {
	Advise(ctx context.Context, profile domain.MentorProfile, query string) (string, error)
}

// MentorReader resolves mentor profiles.
type MentorReader interface {
	Get(ctx context.Context, id string) (domain.MentorProfile, error)
}

// Service composes matched mentor context into generated guidance for the
// mentee. Purely advisory: it never influences scores or rankings.
type Service struct {
	gen     Generator
	mentors MentorReader
	logger  *zap.Logger
}

// New creates the advisor service.
func New(gen Generator, mentors MentorReader, logger *zap.Logger) *Service {
	return &Service{gen: gen, mentors: mentors, logger: logger}
}

// Advise generates guidance for working with the given mentor on the stated
// goal. Unknown mentor is domain.ErrMentorNotFound; generation failures are
// domain.ErrAdviceUnavailable.
func (s *Service) Advise(ctx context.Context, mentorID, query string) (string, error) {
	if mentorID == "" {
		return "", fmt.Errorf("%w: mentor id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query text is required", domain.ErrValidation)
	}

	profile, err := s.mentors.Get(ctx, mentorID)
	if err != nil {
		return "", err
	}

	advice, err := s.gen.Advise(ctx, profile, query)
	if err != nil {
		s.logger.Warn("advice generation failed",
			zap.String("mentor_id", mentorID), zap.Error(err))
		return "", err
	}
	return advice, nil
}
