package dispatch

import (
	"fmt"

	"github.com/siteledger/siteledger/internal/platform/db"
	"github.com/siteledger/siteledger/internal/shared"
)

// ValidatePlanRequest checks a planning request before any snapshot read.
func ValidatePlanRequest(req PlanRequest) error {
	if req.TruckCapacity <= 0 {
		return ErrInvalidCapacity
	}
	hasSite := req.SourceSiteID != nil && *req.SourceSiteID > 0
	hasProject := req.SourceProjectID != nil && *req.SourceProjectID > 0
	if hasSite == hasProject {
		return fmt.Errorf("%w: exactly one of source_site_id or source_project_id required", shared.ErrValidation)
	}
	return nil
}

// ValidateCommitRequest checks the structural parts of a commit payload.
// Stock sufficiency is checked later, inside the commit transaction.
func ValidateCommitRequest(req CommitRequest) error {
	if req.ProjectID <= 0 {
		return fmt.Errorf("%w: project_id required", shared.ErrValidation)
	}
	if !req.DispatchType.IsValid() {
		return fmt.Errorf("%w: dispatch_type must be DELIVERY or TRANSFER", shared.ErrValidation)
	}
	if req.Status != "" && req.Status != StatusDraft && req.Status != StatusSent {
		return fmt.Errorf("%w: status must be DRAFT or SENT", shared.ErrValidation)
	}
	if len(req.Trucks) == 0 {
		return fmt.Errorf("%w: at least one truck required", shared.ErrValidation)
	}
	for i, truck := range req.Trucks {
		if truck.Capacity <= 0 {
			return fmt.Errorf("truck %d: %w", i+1, ErrInvalidCapacity)
		}
		if len(truck.Lines) == 0 {
			return fmt.Errorf("truck %d: %w", i+1, ErrEmptyTruck)
		}
		for j, line := range truck.Lines {
			if line.ItemID <= 0 {
				return fmt.Errorf("truck %d line %d: %w: item_id required", i+1, j+1, shared.ErrValidation)
			}
			if line.Quantity <= 0 {
				return fmt.Errorf("truck %d line %d: %w", i+1, j+1, ErrInvalidQuantity)
			}
		}
	}
	return nil
}

func isSerializationFailure(err error) bool {
	return db.IsSerializationFailure(err)
}
