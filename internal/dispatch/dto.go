package dispatch

// PlanRequest asks for a fresh preview from a snapshot scope. Exactly one of
// SourceSiteID or SourceProjectID must be set.
type PlanRequest struct {
	SourceSiteID    *int64  `json:"source_site_id,omitempty" validate:"omitempty,gt=0"`
	SourceProjectID *int64  `json:"source_project_id,omitempty" validate:"omitempty,gt=0"`
	TruckCapacity   float64 `json:"truck_capacity" validate:"required,gt=0"`
}

// SetLineQuantityRequest updates one line's quantity in a caller-held preview.
type SetLineQuantityRequest struct {
	Preview    Preview `json:"preview" validate:"required"`
	TruckIndex int     `json:"truck_index" validate:"gte=0"`
	LineIndex  int     `json:"line_index" validate:"gte=0"`
	Quantity   int     `json:"quantity" validate:"gte=0"`
}

// RemoveLineRequest removes one line from a caller-held preview.
type RemoveLineRequest struct {
	Preview    Preview `json:"preview" validate:"required"`
	TruckIndex int     `json:"truck_index" validate:"gte=0"`
	LineIndex  int     `json:"line_index" validate:"gte=0"`
}

// AddTruckRequest appends an empty truck to a caller-held preview.
type AddTruckRequest struct {
	Preview Preview `json:"preview" validate:"required"`
}

// RemoveTruckRequest removes one truck, redistributing its lines.
type RemoveTruckRequest struct {
	Preview    Preview `json:"preview" validate:"required"`
	TruckIndex int     `json:"truck_index" validate:"gte=0"`
}

// RedistributeRequest regenerates the preview across a new truck count.
type RedistributeRequest struct {
	Preview    Preview `json:"preview" validate:"required"`
	TruckCount int     `json:"truck_count" validate:"required,gte=1"`
}

// CommitLine is one item/quantity pair on a commit payload.
type CommitLine struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// CommitTruck is one truck's final payload, either straight from a preview or
// hand-built by the caller.
type CommitTruck struct {
	Capacity float64      `json:"capacity" validate:"required,gt=0"`
	Lines    []CommitLine `json:"lines" validate:"required,min=1,dive"`
	Meta     TruckMeta    `json:"meta"`
}

// CommitRequest creates one challan per truck in a single atomic batch.
type CommitRequest struct {
	ProjectID    int64        `json:"project_id" validate:"required,gt=0"`
	SourceSiteID *int64       `json:"source_site_id,omitempty" validate:"omitempty,gt=0"`
	DispatchType DispatchType `json:"dispatch_type" validate:"required,oneof=DELIVERY TRANSFER"`
	// Status defaults to DRAFT; SENT skips the draft stage for challans that
	// leave the gate immediately.
	Status Status        `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT"`
	Trucks []CommitTruck `json:"trucks" validate:"required,min=1,dive"`
	// IdempotencyKey lets a client replay a commit safely after a network
	// failure. Optional.
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}

// CommitResponse reports the persisted challans of one commit batch.
type CommitResponse struct {
	IDs             []string `json:"ids"`
	SequenceNumbers []string `json:"sequence_numbers"`
}

// ReturnLine is one returned item/quantity pair.
type ReturnLine struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// ReturnRequest records a partial or full return against a challan.
type ReturnRequest struct {
	Lines []ReturnLine `json:"lines" validate:"required,min=1,dive"`
	Notes string       `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ListRequest filters challan listings.
type ListRequest struct {
	ProjectID int64  `json:"project_id"`
	Status    Status `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT PARTIALLY_RETURNED RETURNED CANCELLED"`
	Page      int    `json:"page" validate:"gte=0"`
	PerPage   int    `json:"per_page" validate:"gte=0,lte=200"`
}
