package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ServiceEndpoint names a remote dependency to probe.
type ServiceEndpoint struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ServiceStatus is the probe result for one endpoint.
type ServiceStatus struct {
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	Healthy      bool          `json:"healthy"`
	ResponseTime time.Duration `json:"response_time_ms"`
	Error        string        `json:"error,omitempty"`
}

// HealthChecker probes the assistant's upstream services.
type HealthChecker interface {
	Check(ctx context.Context, endpoints []ServiceEndpoint) []ServiceStatus
}

type healthChecker struct {
	httpClient *http.Client
}

// NewHealthChecker creates a checker whose probes time out after timeout.
func NewHealthChecker(timeout time.Duration) HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &healthChecker{httpClient: &http.Client{Timeout: timeout}}
}

// Check probes every endpoint concurrently and returns statuses in input
// order. Any response below 500 counts as reachable; an auth failure still
// proves the service is up.
func (h *healthChecker) Check(ctx context.Context, endpoints []ServiceEndpoint) []ServiceStatus {
	statuses := make([]ServiceStatus, len(endpoints))
	var wg sync.WaitGroup
	for i, ep := range endpoints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i] = h.probe(ctx, ep)
		}()
	}
	wg.Wait()
	return statuses
}

func (h *healthChecker) probe(ctx context.Context, ep ServiceEndpoint) ServiceStatus {
	status := ServiceStatus{Name: ep.Name, URL: ep.URL}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp, err := h.httpClient.Do(req)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	_ = resp.Body.Close()

	status.Healthy = resp.StatusCode < 500
	if !status.Healthy {
		status.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return status
}
