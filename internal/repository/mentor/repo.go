package mentor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pathlight/mentormatch/internal/db"
	"github.com/pathlight/mentormatch/internal/domain"
)

// Hash field names for mentor records.
const (
	fieldID          = "id"
	fieldName        = "name"
	fieldExpertise   = "expertise"
	fieldDescription = "description"
	fieldUpdatedAt   = "updated_at"
	fieldVector      = "vector"
)

const expertiseSeparator = ","

// store is the consumer interface for mentor records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Hit is a raw nearest-neighbor result: a profile plus its normalized
// cosine distance to the query.
type Hit struct {
	Profile  domain.MentorProfile
	Distance float64
}

// Repo stores mentor profiles and their embeddings as Redis hashes indexed
// for KNN search.
type Repo struct {
	store     store
	keyPrefix string
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a mentor repository.
func New(s store, keyPrefix string, vectorDim int) *Repo {
	return &Repo{
		store:     s,
		keyPrefix: keyPrefix,
		vectorDim: vectorDim,
		hnsw:      HNSWConfig{M: 16, EFConstruct: 200},
	}
}

// WithHNSW overrides HNSW index build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the mentor FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(name).
		Prefix(r.mentorKey("")).
		Tag(fieldExpertise, expertiseSeparator).
		Text(fieldName).
		VectorHNSW(fieldVector, r.vectorDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		MustBuild()

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Upsert stores a profile and its embedding. All fields are written in one
// HSET, so the stored record is replaced wholesale and concurrent readers
// see either the old or the new profile, never a mixture.
func (r *Repo) Upsert(ctx context.Context, profile domain.MentorProfile, vector []float32) error {
	if len(vector) != r.vectorDim {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), r.vectorDim)
	}

	fields := map[string]string{
		fieldID:          profile.ID,
		fieldName:        profile.Name,
		fieldExpertise:   strings.Join(domain.NormalizeExpertise(profile.Expertise), expertiseSeparator),
		fieldDescription: profile.Description,
		fieldUpdatedAt:   strconv.FormatInt(profile.UpdatedAt, 10),
		fieldVector:      db.EncodeVectorFP32(vector),
	}

	if err := r.store.HSet(ctx, r.mentorKey(profile.ID), fields); err != nil {
		return fmt.Errorf("hset mentor %s: %w", profile.ID, err)
	}
	return nil
}

// Get returns a mentor profile by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.MentorProfile, error) {
	fields, err := r.store.HGetAll(ctx, r.mentorKey(id))
	if err != nil {
		return domain.MentorProfile{}, fmt.Errorf("hgetall mentor %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.MentorProfile{}, domain.ErrMentorNotFound
	}
	return profileFromFields(id, fields), nil
}

// Delete removes a mentor profile. Removal is explicit; feedback history
// for the mentor is untouched.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.mentorKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrMentorNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// SearchKNN returns up to k nearest mentors for the query vector, ordered
// by ascending distance. An absent index reads as an empty result set.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldID, fieldName, fieldExpertise, fieldDescription, fieldUpdatedAt},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[fieldID]
		if id == "" {
			id = strings.TrimPrefix(e.Key, r.mentorKey(""))
		}
		hits = append(hits, Hit{
			Profile:  profileFromFields(id, e.Fields),
			Distance: normalizeDistance(e.Distance),
		})
	}
	return hits, nil
}

// Count returns the number of indexed mentors. An absent index counts as zero.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

func (r *Repo) mentorKey(id string) string {
	return r.keyPrefix + "mentor:" + id
}

func (r *Repo) indexName() string {
	return r.keyPrefix + "mentors:idx"
}

func profileFromFields(id string, fields map[string]string) domain.MentorProfile {
	var expertise []string
	if raw := fields[fieldExpertise]; raw != "" {
		expertise = strings.Split(raw, expertiseSeparator)
	}
	updatedAt, _ := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	return domain.MentorProfile{
		ID:          id,
		Name:        fields[fieldName],
		Expertise:   expertise,
		Description: fields[fieldDescription],
		UpdatedAt:   updatedAt,
	}
}

// normalizeDistance maps raw cosine distance to [0,1]. Raw cosine distance
// spans [0,2]; values past 1 mean the vectors point in opposite directions,
// which for text embeddings is as dissimilar as it gets, so they clamp to 1.
func normalizeDistance(raw float64) float64 {
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}
