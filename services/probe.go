package services

import (
	"fmt"
	"net/http"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/utils"
)

// ProbeResult is the verdict of one liveness check. The probe never escalates:
// network errors, timeouts and TLS failures all land in ok=false.
type ProbeResult struct {
	OK             bool          `json:"ok"`
	Latency        time.Duration `json:"latency"`
	ObservedStatus int           `json:"observedStatus"`
	Detail         string        `json:"detail,omitempty"`
}

/**
 * Run a single liveness check against one service
 * @param {*config.ServiceDescriptor} desc - The monitored unit
 * @param {time.Duration} timeout - Bounded request timeout
 * @returns {ProbeResult} Pass/fail verdict with latency and observed status
 * @description
 * - One HTTP GET against probe.url, verdict by the per-service accept set
 * - Descriptors without a URL fall back to a TCP connect on probe.port
 * - No retries here; retry/backoff belongs to the supervisor
 */
func Probe(desc *config.ServiceDescriptor, timeout time.Duration) ProbeResult {
	if desc.Probe.URL == "" {
		return probeTCP(desc)
	}
	return probeHTTP(desc, timeout)
}

func probeHTTP(desc *config.ServiceDescriptor, timeout time.Duration) ProbeResult {
	client := &http.Client{Timeout: timeout}

	start := time.Now()
	resp, err := client.Get(desc.Probe.URL)
	latency := time.Since(start)

	if err != nil {
		return ProbeResult{
			OK:      false,
			Latency: latency,
			Detail:  err.Error(),
		}
	}
	defer resp.Body.Close()

	result := ProbeResult{
		Latency:        latency,
		ObservedStatus: resp.StatusCode,
	}
	if desc.Acceptable(resp.StatusCode) {
		result.OK = true
	} else {
		result.Detail = fmt.Sprintf("status %d not in accept set", resp.StatusCode)
	}
	return result
}

func probeTCP(desc *config.ServiceDescriptor) ProbeResult {
	start := time.Now()
	if desc.Probe.Port <= 0 {
		return ProbeResult{
			OK:     false,
			Detail: "descriptor has neither probe url nor port",
		}
	}
	ok := utils.CheckPortConnectable(desc.Probe.Port)
	result := ProbeResult{
		OK:      ok,
		Latency: time.Since(start),
	}
	if !ok {
		result.Detail = fmt.Sprintf("port %d not connectable", desc.Probe.Port)
	}
	return result
}
