package inventory

import (
	"context"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error)
	SiteSnapshot(ctx context.Context, siteID int64) ([]SnapshotEntry, error)
	ProjectOutwardSnapshot(ctx context.Context, projectID int64) ([]SnapshotEntry, error)
}

// Service serves snapshot reads, optionally through the cache.
type Service struct {
	repo  RepositoryPort
	cache *SnapshotCache
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache *SnapshotCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ItemsByIDs fetches master data for the given item ids.
func (s *Service) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error) {
	return s.repo.ItemsByIDs(ctx, ids)
}

// SiteSnapshot returns the deployed quantities at a site.
func (s *Service) SiteSnapshot(ctx context.Context, siteID int64) ([]SnapshotEntry, error) {
	return s.cache.Fetch(ctx, SiteKey(siteID), func(ctx context.Context) ([]SnapshotEntry, error) {
		return s.repo.SiteSnapshot(ctx, siteID)
	})
}

// ProjectOutwardSnapshot returns the net outward quantities for a project.
func (s *Service) ProjectOutwardSnapshot(ctx context.Context, projectID int64) ([]SnapshotEntry, error) {
	return s.cache.Fetch(ctx, ProjectKey(projectID), func(ctx context.Context) ([]SnapshotEntry, error) {
		return s.repo.ProjectOutwardSnapshot(ctx, projectID)
	})
}

// InvalidateScopes drops cached snapshots after stock has moved.
func (s *Service) InvalidateScopes(ctx context.Context, siteID, projectID int64) {
	var keys []string
	if siteID != 0 {
		keys = append(keys, SiteKey(siteID))
	}
	if projectID != 0 {
		keys = append(keys, ProjectKey(projectID))
	}
	s.cache.Invalidate(ctx, keys...)
}
