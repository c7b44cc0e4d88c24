package stock

import (
	"context"
	"fmt"

	"github.com/siteledger/siteledger/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]Movement, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates ledger operations for collaborator flows.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ReceiptInput describes an inbound receipt (purchase receiving, repairs
// coming back, manual corrections upward).
type ReceiptInput struct {
	ItemID   int64
	Quantity int
	Type     MovementType
	Notes    string
	ActorID  int64
}

// PostReceipt applies one inbound movement, increasing the item quantity.
func (s *Service) PostReceipt(ctx context.Context, input ReceiptInput) (Movement, error) {
	if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	movementType := input.Type
	if movementType == "" {
		movementType = MovementInward
	}

	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		level, err := tx.LockItem(ctx, input.ItemID)
		if err != nil {
			return err
		}
		movement = Movement{
			ItemID:           input.ItemID,
			Type:             movementType,
			Quantity:         input.Quantity,
			PreviousQuantity: level.Quantity,
			NewQuantity:      level.Quantity + input.Quantity,
			Notes:            input.Notes,
			PerformedBy:      input.ActorID,
		}
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return err
		}
		return tx.SetItemQuantity(ctx, input.ItemID, movement.NewQuantity)
	})
	if err != nil {
		return Movement{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("stock:%s", movementType),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("item:%d", input.ItemID),
			Meta: map[string]any{
				"quantity": input.Quantity,
				"notes":    input.Notes,
			},
		})
	}
	return movement, nil
}

// History lists an item's movements with pagination metadata.
func (s *Service) History(ctx context.Context, itemID int64, page, perPage int) ([]Movement, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	movements, total, err := s.repo.ListByItem(ctx, itemID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return movements, shared.NewPagination(page, perPage, total), nil
}
