package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	entries []SnapshotEntry
	calls   int
}

func (r *countingRepo) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error) {
	return map[int64]Item{}, nil
}

func (r *countingRepo) SiteSnapshot(ctx context.Context, siteID int64) ([]SnapshotEntry, error) {
	r.calls++
	return r.entries, nil
}

func (r *countingRepo) ProjectOutwardSnapshot(ctx context.Context, projectID int64) ([]SnapshotEntry, error) {
	r.calls++
	return r.entries, nil
}

func TestSnapshotCacheServesSecondReadFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{entries: []SnapshotEntry{{ItemID: 7, Quantity: 42}}}
	svc := NewService(repo, NewSnapshotCache(client, time.Minute))
	ctx := context.Background()

	first, err := svc.SiteSnapshot(ctx, 3)
	require.NoError(t, err)
	second, err := svc.SiteSnapshot(ctx, 3)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, repo.calls)
}

func TestSnapshotCacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{entries: []SnapshotEntry{{ItemID: 7, Quantity: 42}}}
	svc := NewService(repo, NewSnapshotCache(client, time.Minute))
	ctx := context.Background()

	_, err := svc.SiteSnapshot(ctx, 3)
	require.NoError(t, err)

	svc.InvalidateScopes(ctx, 3, 0)

	_, err = svc.SiteSnapshot(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestSnapshotCacheNilClientLoadsDirectly(t *testing.T) {
	repo := &countingRepo{entries: []SnapshotEntry{{ItemID: 1, Quantity: 5}}}
	svc := NewService(repo, nil)

	entries, err := svc.ProjectOutwardSnapshot(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, repo.calls)
}
