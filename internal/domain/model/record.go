// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// TableName is the table food-waste batches are inserted into.
const TableName = "food_waste"

// Record is one canonical food-waste observation.
// Values are never mutated after construction; pass them by value.
type Record struct {
	FoodName     string  `json:"food_name" validate:"required"`
	DisposalMass float64 `json:"disposal_mass" validate:"gt=0"`
	Location     string  `json:"location,omitempty"`
	SessionID    string  `json:"session_id" validate:"required"`
}

// StoredRecord is a Record as reported back by a sink after insertion.
type StoredRecord struct {
	Record
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrInvalidRecord is returned when a record breaks the canonical invariants.
var ErrInvalidRecord = errors.New("invalid record")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate reports whether r satisfies the canonical record invariants.
func (r Record) Validate() error {
	if err := recordValidator().Struct(r); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidRecord, r.FoodName, err)
	}
	return nil
}

// Batch is the unit handed to a sink: one normalization run.
type Batch struct {
	Table     string
	SessionID string
	Records   []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int { return len(b.Records) }

// Validate checks every record; the error names the first bad index.
func (b Batch) Validate() error { //nolint:gocritic // hugeParam
	for i, r := range b.Records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
