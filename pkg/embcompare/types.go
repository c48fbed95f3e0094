package embcompare

import (
	"github.com/kailas-cloud/embcompare/internal/domain"
	compareuc "github.com/kailas-cloud/embcompare/internal/usecase/compare"
)

// Provider describes one embedding model and where its vectors live.
type Provider struct {
	Name       string
	Model      string
	Dimensions int
	// Namespaces maps a search domain ("titles", "skills") to a vector namespace.
	Namespaces map[string]string
	// RequestsPerMinute limits Embed calls when positive.
	RequestsPerMinute int
}

// Request is one comparison query.
type Request = compareuc.Request

// Report is the immutable result of one comparison.
type Report = domain.ComparisonReport

// Band labels a match distance as excellent, good or fair.
type Band = domain.Band

// Quality bands.
const (
	BandExcellent = domain.BandExcellent
	BandGood      = domain.BandGood
	BandFair      = domain.BandFair
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
