package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Batches       int           // Number of batches to submit
	ItemsPerBatch int           // Foods per batch, capped at the food catalogue size
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	Async         bool          // Submit with async=true
	Location      string        // Location query parameter; empty uses the service default
	SettleTimeout time.Duration // How long to wait for async batches to show up in aggregates
	Verbose       bool
}

// Batch is one generated request body together with what it should add to
// the aggregates.
type Batch struct {
	Shape     string
	SessionID string
	Body      any
	Totals    map[string]float64
}

// Total mirrors one row of GET /food-waste/aggregate.
type Total struct {
	FoodName     string  `json:"food_name"`
	DisposalMass float64 `json:"disposal_mass"`
	Count        int     `json:"count"`
}

// Stats holds run statistics.
type Stats struct {
	BatchesGenerated int
	BatchesSubmitted int
	BatchesSynced    int
	BatchesQueued    int
	BatchesRejected  int
	BatchesFailed    int
	FoodsVerified    int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
