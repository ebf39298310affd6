package obstore

import (
	"context"
	"sort"

	healthuc "github.com/kailas-cloud/obstore/internal/usecase/health"
)

// HealthState is the overall state reported by Client.Health.
type HealthState = healthuc.Status

// Health states.
const (
	HealthOK       = healthuc.Healthy
	HealthDegraded = healthuc.Degraded
	HealthDown     = healthuc.Unhealthy
)

// Health describes the store connection and the object index.
type Health struct {
	State HealthState
	// Failing lists the components whose check failed, sorted by name.
	Failing []string
}

// Healthy reports whether every component passed its check.
func (h Health) Healthy() bool { return h.State == HealthOK }

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Health checks the store connection ("database") and the object index ("index").
func (c *Client) Health(ctx context.Context) Health {
	report := c.healthSvc.Check(ctx)
	h := Health{State: report.Status}
	for name, res := range report.Checks {
		if res != healthuc.CheckOK {
			h.Failing = append(h.Failing, name)
		}
	}
	sort.Strings(h.Failing)
	return h
}
