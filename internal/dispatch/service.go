package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/siteledger/siteledger/internal/inventory"
	"github.com/siteledger/siteledger/internal/shared"
	"github.com/siteledger/siteledger/internal/stock"
)

// SnapshotSource provides the read-only inventory views planning starts from.
type SnapshotSource interface {
	ItemsByIDs(ctx context.Context, ids []int64) (map[int64]inventory.Item, error)
	SiteSnapshot(ctx context.Context, siteID int64) ([]inventory.SnapshotEntry, error)
	ProjectOutwardSnapshot(ctx context.Context, projectID int64) ([]inventory.SnapshotEntry, error)
	InvalidateScopes(ctx context.Context, siteID, projectID int64)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CommittedEvent describes a successful commit batch for notification.
type CommittedEvent struct {
	Refs            []string
	SequenceNumbers []string
	ProjectID       int64
	ActorID         int64
}

// Notifier is told about committed batches, typically to enqueue a
// background task. Failures are logged, never propagated.
type Notifier interface {
	DispatchCommitted(ctx context.Context, event CommittedEvent) error
}

// CommitObserver records commit outcomes for monitoring.
type CommitObserver interface {
	ObserveCommit(outcome string)
	ObserveCommitConflict()
}

// Service coordinates planning and committing.
type Service struct {
	repo        RepositoryPort
	snapshots   SnapshotSource
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	notifier    Notifier
	observer    CommitObserver
}

// NewService builds Service. audit, idempotency, notifier and observer may be nil.
func NewService(repo RepositoryPort, snapshots SnapshotSource, audit AuditPort, idem *shared.IdempotencyStore, notifier Notifier, observer CommitObserver) *Service {
	return &Service{
		repo:        repo,
		snapshots:   snapshots,
		audit:       audit,
		idempotency: idem,
		notifier:    notifier,
		observer:    observer,
	}
}

// BuildPreview reads the requested snapshot and runs the planner over it.
// Nothing is persisted; the caller holds the returned preview.
func (s *Service) BuildPreview(ctx context.Context, req PlanRequest) (*Preview, error) {
	if err := ValidatePlanRequest(req); err != nil {
		return nil, err
	}

	var entries []inventory.SnapshotEntry
	var err error
	switch {
	case req.SourceSiteID != nil:
		entries, err = s.snapshots.SiteSnapshot(ctx, *req.SourceSiteID)
	default:
		entries, err = s.snapshots.ProjectOutwardSnapshot(ctx, *req.SourceProjectID)
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoItems
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ItemID)
	}
	items, err := s.snapshots.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(entries))
	for _, entry := range entries {
		item, ok := items[entry.ItemID]
		if !ok {
			return nil, &ItemNotFoundError{ItemID: entry.ItemID}
		}
		line := Line{
			ItemID:        item.ID,
			ItemName:      item.Name,
			CategoryID:    item.CategoryID,
			CategoryName:  item.CategoryName,
			LoadingOrder:  item.LoadingOrder,
			Quantity:      entry.Quantity,
			WeightPerUnit: item.WeightPerUnit,
			HSNCode:       item.HSNCode,
		}
		line.Recompute()
		lines = append(lines, line)
	}

	return Plan(lines, req.TruckCapacity)
}

// Commit persists one challan per truck under a single serializable
// transaction: a failure on any truck rolls back the entire batch. Sequence
// issuance, stock validation, and the stock decrement all happen inside the
// transaction, so concurrent commits can never duplicate a number or compute
// from a stale quantity.
func (s *Service) Commit(ctx context.Context, req CommitRequest, actor shared.Actor) (CommitResponse, error) {
	if err := ValidateCommitRequest(req); err != nil {
		return CommitResponse{}, err
	}
	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	insertedKey := false
	if req.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "dispatch"); err != nil {
			return CommitResponse{}, err
		}
		insertedKey = true
	}

	var response CommitResponse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Levels already read (and since decremented) earlier in this batch
		// carry forward, so a repeated item never sees a stale quantity.
		levels := make(map[int64]ItemStock)

		for truckIdx, truck := range req.Trucks {
			seq, err := tx.AcquireNextSequence(ctx)
			if err != nil {
				return err
			}
			number := FormatSequence(seq)

			var unseen []int64
			seen := make(map[int64]bool)
			for _, line := range truck.Lines {
				if _, ok := levels[line.ItemID]; !ok && !seen[line.ItemID] {
					seen[line.ItemID] = true
					unseen = append(unseen, line.ItemID)
				}
			}
			fetched, err := tx.LockItems(ctx, unseen)
			if err != nil {
				return err
			}
			for id, level := range fetched {
				levels[id] = level
			}

			challan, err := buildChallan(req, truck, number, status, levels, actor)
			if err != nil {
				return err
			}
			if challan.TotalWeight > truck.Capacity {
				return &OverCapacityError{
					TruckNumber: truckIdx + 1,
					Capacity:    truck.Capacity,
					TotalWeight: challan.TotalWeight,
				}
			}

			challanID, err := tx.InsertChallan(ctx, challan)
			if err != nil {
				return err
			}
			if err := tx.InsertChallanLines(ctx, challanID, challan.Lines); err != nil {
				return err
			}

			// Lines run strictly in order: when the same item appears twice
			// on one truck the second movement starts from the first one's
			// result, keeping previous/new quantities accurate.
			projectID := req.ProjectID
			for _, line := range truck.Lines {
				level := levels[line.ItemID]
				movement := stock.Movement{
					ItemID:           line.ItemID,
					Type:             stock.MovementOutward,
					Quantity:         line.Quantity,
					PreviousQuantity: level.Quantity,
					NewQuantity:      level.Quantity - line.Quantity,
					ProjectID:        &projectID,
					Notes:            fmt.Sprintf("Dispatched via challan %s", number),
					PerformedBy:      actor.ID,
				}
				if err := tx.InsertMovement(ctx, movement); err != nil {
					return err
				}
				if err := tx.SetItemQuantity(ctx, line.ItemID, movement.NewQuantity); err != nil {
					return err
				}
				level.Quantity = movement.NewQuantity
				levels[line.ItemID] = level
			}

			response.IDs = append(response.IDs, challan.Ref.String())
			response.SequenceNumbers = append(response.SequenceNumbers, number)
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, req.IdempotencyKey)
		}
		return CommitResponse{}, s.commitError(err)
	}

	s.afterCommit(ctx, req, actor, response)
	return response, nil
}

func buildChallan(req CommitRequest, truck CommitTruck, number string, status Status, levels map[int64]ItemStock, actor shared.Actor) (Challan, error) {
	challan := Challan{
		Ref:          uuid.New(),
		Number:       number,
		ProjectID:    req.ProjectID,
		SourceSiteID: req.SourceSiteID,
		Type:         req.DispatchType,
		Status:       status,
		Capacity:     truck.Capacity,
		Meta:         truck.Meta,
		CreatedBy:    actor.ID,
	}
	// Validation walks the lines with a working copy of the levels, so a
	// later line for an item already on this truck only sees what the
	// earlier lines left over.
	available := make(map[int64]int, len(truck.Lines))
	for _, line := range truck.Lines {
		level, ok := levels[line.ItemID]
		if !ok {
			return Challan{}, &ItemNotFoundError{ItemID: line.ItemID}
		}
		remaining, seen := available[line.ItemID]
		if !seen {
			remaining = level.Quantity
		}
		if line.Quantity > remaining {
			return Challan{}, &InsufficientStockError{
				ItemID:    line.ItemID,
				ItemName:  level.Name,
				Available: remaining,
				Required:  line.Quantity,
			}
		}
		available[line.ItemID] = remaining - line.Quantity
		unitWeight := 1.0
		if level.WeightPerUnit != nil {
			unitWeight = *level.WeightPerUnit
		}
		challan.TotalWeight += unitWeight * float64(line.Quantity)
		challan.Lines = append(challan.Lines, ChallanLine{
			ItemID:        line.ItemID,
			ItemName:      level.Name,
			Quantity:      line.Quantity,
			WeightPerUnit: level.WeightPerUnit,
		})
	}
	return challan, nil
}

func (s *Service) commitError(err error) error {
	if isSerializationFailure(err) {
		if s.observer != nil {
			s.observer.ObserveCommitConflict()
			s.observer.ObserveCommit("conflict")
		}
		return fmt.Errorf("%w: %v", shared.ErrConflict, err)
	}
	if s.observer != nil {
		s.observer.ObserveCommit("failure")
	}
	return err
}

func (s *Service) afterCommit(ctx context.Context, req CommitRequest, actor shared.Actor, response CommitResponse) {
	if s.observer != nil {
		s.observer.ObserveCommit("success")
	}
	if s.snapshots != nil {
		siteID := int64(0)
		if req.SourceSiteID != nil {
			siteID = *req.SourceSiteID
		}
		s.snapshots.InvalidateScopes(ctx, siteID, req.ProjectID)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Action:    "dispatch:commit",
			Entity:    "challan",
			EntityID:  fmt.Sprintf("batch:%d", len(response.SequenceNumbers)),
			Meta: map[string]any{
				"project_id": req.ProjectID,
				"numbers":    response.SequenceNumbers,
			},
		})
	}
	if s.notifier != nil {
		_ = s.notifier.DispatchCommitted(ctx, CommittedEvent{
			Refs:            response.IDs,
			SequenceNumbers: response.SequenceNumbers,
			ProjectID:       req.ProjectID,
			ActorID:         actor.ID,
		})
	}
}

// Cancel voids a challan and restores its stock line by line. The challan
// keeps its number; cancelled numbers are never reissued.
func (s *Service) Cancel(ctx context.Context, ref uuid.UUID, actor shared.Actor) (Challan, error) {
	var cancelled Challan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		challan, err := tx.GetChallanForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		if !challan.Status.CanCancel() {
			return ErrCannotCancel
		}

		itemIDs := make([]int64, 0, len(challan.Lines))
		restorable := make(map[int64]bool, len(challan.Lines))
		for _, line := range challan.Lines {
			if line.Quantity-line.ReturnedQuantity <= 0 || restorable[line.ItemID] {
				continue
			}
			restorable[line.ItemID] = true
			itemIDs = append(itemIDs, line.ItemID)
		}

		// One lock call for the whole cancellation; LockItems orders the
		// ids so concurrent transactions acquire overlapping rows in the
		// same order.
		levels, err := tx.LockItems(ctx, itemIDs)
		if err != nil {
			return err
		}

		for _, line := range challan.Lines {
			outstanding := line.Quantity - line.ReturnedQuantity
			if outstanding <= 0 {
				continue
			}
			level, ok := levels[line.ItemID]
			if !ok {
				return &ItemNotFoundError{ItemID: line.ItemID}
			}
			movement := stock.Movement{
				ItemID:           line.ItemID,
				Type:             stock.MovementInward,
				Quantity:         outstanding,
				PreviousQuantity: level.Quantity,
				NewQuantity:      level.Quantity + outstanding,
				ProjectID:        &challan.ProjectID,
				Notes:            fmt.Sprintf("Restored by cancellation of challan %s", challan.Number),
				PerformedBy:      actor.ID,
			}
			if err := tx.InsertMovement(ctx, movement); err != nil {
				return err
			}
			if err := tx.SetItemQuantity(ctx, line.ItemID, movement.NewQuantity); err != nil {
				return err
			}
			level.Quantity = movement.NewQuantity
			levels[line.ItemID] = level
		}

		if err := tx.UpdateChallanStatus(ctx, challan.ID, StatusCancelled); err != nil {
			return err
		}
		challan.Status = StatusCancelled
		cancelled = challan
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return Challan{}, fmt.Errorf("%w: %v", shared.ErrConflict, err)
		}
		return Challan{}, err
	}

	if s.snapshots != nil {
		s.snapshots.InvalidateScopes(ctx, 0, cancelled.ProjectID)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Action:    "dispatch:cancel",
			Entity:    "challan",
			EntityID:  cancelled.Number,
			Meta:      map[string]any{"project_id": cancelled.ProjectID},
		})
	}
	return cancelled, nil
}

// Return records a partial or full return against a challan, restoring stock
// and advancing the challan status once everything has come back.
func (s *Service) Return(ctx context.Context, ref uuid.UUID, req ReturnRequest, actor shared.Actor) (Challan, error) {
	if len(req.Lines) == 0 {
		return Challan{}, fmt.Errorf("%w: at least one return line required", shared.ErrValidation)
	}

	var updated Challan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		challan, err := tx.GetChallanForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		if !challan.Status.CanReturn() {
			return ErrCannotReturn
		}

		outstanding := make(map[int64]int, len(challan.Lines))
		for _, line := range challan.Lines {
			outstanding[line.ItemID] += line.Quantity - line.ReturnedQuantity
		}

		itemIDs := make([]int64, 0, len(req.Lines))
		requested := make(map[int64]bool, len(req.Lines))
		for _, ret := range req.Lines {
			if ret.Quantity <= 0 {
				return ErrInvalidQuantity
			}
			remaining, ok := outstanding[ret.ItemID]
			if !ok {
				return &ItemNotFoundError{ItemID: ret.ItemID}
			}
			if ret.Quantity > remaining {
				return &ReturnExceedsError{ItemID: ret.ItemID, Remaining: remaining, Requested: ret.Quantity}
			}
			outstanding[ret.ItemID] = remaining - ret.Quantity
			if !requested[ret.ItemID] {
				requested[ret.ItemID] = true
				itemIDs = append(itemIDs, ret.ItemID)
			}
		}

		// One lock call for the whole return; LockItems orders the ids so
		// concurrent transactions acquire overlapping rows in the same order.
		levels, err := tx.LockItems(ctx, itemIDs)
		if err != nil {
			return err
		}

		for _, ret := range req.Lines {
			level, ok := levels[ret.ItemID]
			if !ok {
				return &ItemNotFoundError{ItemID: ret.ItemID}
			}
			movement := stock.Movement{
				ItemID:           ret.ItemID,
				Type:             stock.MovementReturn,
				Quantity:         ret.Quantity,
				PreviousQuantity: level.Quantity,
				NewQuantity:      level.Quantity + ret.Quantity,
				ProjectID:        &challan.ProjectID,
				Notes:            fmt.Sprintf("Returned against challan %s. %s", challan.Number, req.Notes),
				PerformedBy:      actor.ID,
			}
			if err := tx.InsertMovement(ctx, movement); err != nil {
				return err
			}
			if err := tx.SetItemQuantity(ctx, ret.ItemID, movement.NewQuantity); err != nil {
				return err
			}
			level.Quantity = movement.NewQuantity
			levels[ret.ItemID] = level

			// Settle against the challan's lines for this item in line
			// order, so two lines listing the same item each keep their own
			// returned quantity.
			left := ret.Quantity
			for i := range challan.Lines {
				line := &challan.Lines[i]
				if line.ItemID != ret.ItemID || left == 0 {
					continue
				}
				open := line.Quantity - line.ReturnedQuantity
				if open <= 0 {
					continue
				}
				take := open
				if take > left {
					take = left
				}
				if err := tx.AddReturnedQuantity(ctx, line.ID, take); err != nil {
					return err
				}
				line.ReturnedQuantity += take
				left -= take
			}
		}

		fullyReturned := true
		for _, remaining := range outstanding {
			if remaining > 0 {
				fullyReturned = false
				break
			}
		}
		status := StatusPartiallyReturned
		if fullyReturned {
			status = StatusReturned
		}
		if err := tx.UpdateChallanStatus(ctx, challan.ID, status); err != nil {
			return err
		}
		challan.Status = status
		updated = challan
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return Challan{}, fmt.Errorf("%w: %v", shared.ErrConflict, err)
		}
		return Challan{}, err
	}

	if s.snapshots != nil {
		s.snapshots.InvalidateScopes(ctx, 0, updated.ProjectID)
	}
	return updated, nil
}

// GetChallan loads one challan by its external reference.
func (s *Service) GetChallan(ctx context.Context, ref uuid.UUID) (Challan, error) {
	return s.repo.GetChallan(ctx, ref)
}

// ListChallans lists challans with pagination.
func (s *Service) ListChallans(ctx context.Context, req ListRequest) ([]Challan, shared.Pagination, error) {
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	challans, total, err := s.repo.ListChallans(ctx, ChallanFilter{
		ProjectID: req.ProjectID,
		Status:    req.Status,
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return challans, shared.NewPagination(page, perPage, total), nil
}
