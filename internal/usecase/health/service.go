package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. The remote index is critical:
// when it is down the report is Unhealthy. Other components only degrade.
type Service struct {
	index  Pinger
	others map[string]Pinger
}

// New creates a Service. Nil components are skipped.
func New(index Pinger, others map[string]Pinger) *Service {
	o := make(map[string]Pinger, len(others))
	for name, p := range others {
		if p != nil {
			o[name] = p
		}
	}
	return &Service{index: index, others: o}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.others)+1)

	indexOK := s.index.Ping(ctx) == nil
	checks["database"] = result(indexOK)

	names := make([]string, 0, len(s.others))
	for name := range s.others {
		names = append(names, name)
	}
	sort.Strings(names)

	status := Healthy
	for _, name := range names {
		ok := s.others[name].Ping(ctx) == nil
		checks[name] = result(ok)
		if !ok {
			status = Degraded
		}
	}
	if !indexOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
