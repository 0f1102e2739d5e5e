// Package storage provides brew report persistence implementations.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/logger"
)

// DefaultTTL is how long reports are kept when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Compile-time interface check.
var _ domain.ReportStore = (*MemoryStore)(nil)

const (
	reportPrefix      = "report:"
	fingerprintPrefix = "fp:"
)

// MemoryStore is an in-memory report store with expiry. Safe for
// concurrent access. Stored outcomes are shared with callers and must be
// treated as read-only.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewMemoryStore creates an empty store. A ttl of zero or less uses
// DefaultTTL.
func NewMemoryStore(ttl time.Duration, log *logger.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
		log:   log,
	}
}

// Save stores an outcome, assigning an ID if it has none. Overwrites an
// existing report with the same ID.
func (s *MemoryStore) Save(ctx context.Context, outcome *domain.Outcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	s.cache.Set(reportPrefix+outcome.ID, outcome, s.ttl)
	if outcome.Fingerprint != "" {
		s.cache.Set(fingerprintPrefix+outcome.Fingerprint, outcome.ID, s.ttl)
	}
	s.log.Debug("saved report %s (status=%s, found=%t)", outcome.ID, outcome.Status, outcome.Found())
	return nil
}

// Load retrieves a report by ID.
func (s *MemoryStore) Load(ctx context.Context, id string) (*domain.Outcome, error) {
	v, ok := s.cache.Get(reportPrefix + id)
	if !ok {
		s.log.Debug("report not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return v.(*domain.Outcome), nil
}

// Lookup retrieves the latest report saved for a request fingerprint.
func (s *MemoryStore) Lookup(ctx context.Context, fingerprint string) (*domain.Outcome, error) {
	v, ok := s.cache.Get(fingerprintPrefix + fingerprint)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Load(ctx, v.(string))
}

// Delete removes a report and its fingerprint entry.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	out, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	s.cache.Delete(reportPrefix + id)
	if out.Fingerprint != "" {
		if v, ok := s.cache.Get(fingerprintPrefix + out.Fingerprint); ok && v.(string) == id {
			s.cache.Delete(fingerprintPrefix + out.Fingerprint)
		}
	}
	s.log.Debug("deleted report %s", id)
	return nil
}

// Len returns the number of live reports.
func (s *MemoryStore) Len() int {
	n := 0
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, reportPrefix) {
			n++
		}
	}
	return n
}
