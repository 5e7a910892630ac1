package health

import "context"

// Status represents the aggregated readiness status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates an index without entries; queries will fail.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates readiness checks.
type Service struct {
	index     IndexSizer
	cache     Pinger
	embedding EmbeddingChecker
}

// New creates a Service. cache and embedding can be nil.
func New(index IndexSizer, cache Pinger, embedding EmbeddingChecker) *Service {
	return &Service{index: index, cache: cache, embedding: embedding}
}

// Check runs readiness checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.index.Len() > 0 {
		checks["index"] = CheckOK
	} else {
		checks["index"] = CheckEmpty
	}

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
