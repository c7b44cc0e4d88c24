package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siteledger/siteledger/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	levels    map[int64]ItemLevel
	movements []Movement
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(levels ...ItemLevel) *memoryRepo {
	repo := &memoryRepo{levels: make(map[int64]ItemLevel)}
	for _, level := range levels {
		repo.levels[level.ID] = level
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]Movement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Movement
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ItemID == itemID {
			matched = append(matched, r.movements[i])
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (tx *memoryTx) LockItem(ctx context.Context, itemID int64) (ItemLevel, error) {
	level, ok := tx.repo.levels[itemID]
	if !ok {
		return ItemLevel{}, ErrItemNotFound
	}
	return level, nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) error {
	m.ID = int64(len(tx.repo.movements) + 1)
	tx.repo.movements = append(tx.repo.movements, m)
	return nil
}

func (tx *memoryTx) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 0 {
		return ErrNegativeStock
	}
	level, ok := tx.repo.levels[itemID]
	if !ok {
		return ErrItemNotFound
	}
	level.Quantity = quantity
	tx.repo.levels[itemID] = level
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestPostReceipt(t *testing.T) {
	repo := newMemoryRepo(ItemLevel{ID: 1, Name: "Scaffolding Pipe", Quantity: 40})
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	movement, err := svc.PostReceipt(context.Background(), ReceiptInput{
		ItemID: 1, Quantity: 25, Notes: "PO-1182 received", ActorID: 9,
	})
	require.NoError(t, err)
	require.Equal(t, MovementInward, movement.Type)
	require.Equal(t, 40, movement.PreviousQuantity)
	require.Equal(t, 65, movement.NewQuantity)
	require.Equal(t, 65, repo.levels[1].Quantity)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "stock:INWARD", audit.logs[0].Action)
}

func TestPostReceiptRepairReturn(t *testing.T) {
	repo := newMemoryRepo(ItemLevel{ID: 1, Name: "Vibrator Motor", Quantity: 2})
	svc := NewService(repo, nil)

	movement, err := svc.PostReceipt(context.Background(), ReceiptInput{
		ItemID: 1, Quantity: 1, Type: MovementRepair, Notes: "Back from workshop", ActorID: 9,
	})
	require.NoError(t, err)
	require.Equal(t, MovementRepair, movement.Type)
	require.Equal(t, 3, repo.levels[1].Quantity)
}

func TestPostReceiptValidation(t *testing.T) {
	repo := newMemoryRepo(ItemLevel{ID: 1, Quantity: 2})
	svc := NewService(repo, nil)

	_, err := svc.PostReceipt(context.Background(), ReceiptInput{ItemID: 1, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostReceipt(context.Background(), ReceiptInput{ItemID: 99, Quantity: 5})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestHistoryPagination(t *testing.T) {
	repo := newMemoryRepo(ItemLevel{ID: 1, Name: "Prop Jack", Quantity: 0})
	svc := NewService(repo, nil)

	for i := 0; i < 5; i++ {
		_, err := svc.PostReceipt(context.Background(), ReceiptInput{ItemID: 1, Quantity: 10, ActorID: 9})
		require.NoError(t, err)
	}

	movements, pagination, err := svc.History(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	require.Equal(t, 5, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
	// Newest first: the last receipt moved 40 to 50.
	require.Equal(t, 40, movements[0].PreviousQuantity)
	require.Equal(t, 50, movements[0].NewQuantity)
}
