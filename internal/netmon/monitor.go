// File: internal/netmon/monitor.go

// Package netmon correlates instrumented page requests and responses into a
// bounded event history with aggregate statistics.
package netmon

import (
	"net/url"
	"strings"
	"sync"

	"github.com/tinkertool/tinker/api/schemas"
	"go.uber.org/zap"
)

const (
	// DefaultMaxHistory caps the completed-event FIFO.
	DefaultMaxHistory = 1000

	// defaultRecentLimit is used when RecentEvents is called with a
	// non-positive limit.
	defaultRecentLimit = 50

	// topHostsLimit bounds the host leaderboard.
	topHostsLimit = 10

	harCreatorName    = "Tinker Browser"
	harCreatorVersion = "0.1.0"
)

// Monitor tracks network traffic reported by the injected instrumentation
// script. One writer (the dispatcher) mutates it; facade handlers read
// concurrently.
//
// TotalRequests counts every request seen while enabled, before filtering;
// filters only decide which transactions are stored and therefore which show
// up in events and the HAR export.
type Monitor struct {
	logger *zap.Logger

	mu         sync.RWMutex
	inflight   map[string]schemas.NetworkRequest
	events     []schemas.NetworkEvent
	stats      schemas.NetworkStats
	filters    []schemas.NetworkFilter
	enabled    bool
	maxHistory int

	// respCount is the divisor for the running average; it counts
	// responses, not requests.
	respCount uint64
}

// NewMonitor builds an enabled monitor whose event FIFO holds up to
// maxHistory entries.
func NewMonitor(logger *zap.Logger, maxHistory int) *Monitor {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Monitor{
		logger:     logger.Named("netmon"),
		inflight:   make(map[string]schemas.NetworkRequest),
		stats:      emptyStats(),
		enabled:    true,
		maxHistory: maxHistory,
	}
}

func emptyStats() schemas.NetworkStats {
	return schemas.NetworkStats{
		ByResourceType: make(map[string]uint64),
		ByStatusCode:   make(map[int]uint64),
		TopHosts:       make([]schemas.HostCount, 0, topHostsLimit),
	}
}

// Start enables monitoring and resets all accumulated state.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting network monitoring")
	m.enabled = true
	m.inflight = make(map[string]schemas.NetworkRequest)
	m.events = nil
	m.stats = emptyStats()
	m.respCount = 0
}

// Stop disables monitoring. Accumulated state stays queryable.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping network monitoring")
	m.enabled = false
}

// Enabled reports whether the monitor is currently recording.
func (m *Monitor) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// RecordRequest registers a request leaving the page. Every request seen
// counts toward TotalRequests; only requests passing the filter set are
// stored for correlation.
func (m *Monitor) RecordRequest(req schemas.NetworkRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	m.logger.Debug("Recording network request",
		zap.String("method", req.Method), zap.String("url", req.URL))

	m.stats.TotalRequests++

	if !m.shouldRecordLocked(req) {
		return
	}

	m.inflight[req.ID] = req
	reqCopy := req
	m.appendEventLocked(schemas.NetworkEvent{
		EventType: schemas.NetRequestStarted,
		Request:   &reqCopy,
	})
}

// RecordResponse correlates a response with its in-flight request, computes
// total time from the page-side timestamps and updates the running stats.
// Responses without a matching request are dropped silently.
func (m *Monitor) RecordResponse(resp schemas.NetworkResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	req, ok := m.inflight[resp.RequestID]
	if !ok {
		return
	}
	delete(m.inflight, resp.RequestID)

	m.logger.Debug("Recording network response",
		zap.Int("status", resp.StatusCode), zap.String("request_id", resp.RequestID))

	timing := &schemas.NetworkTiming{
		Total: float64(resp.Timestamp - req.Timestamp),
	}
	m.updateStatsLocked(req, resp, timing)

	reqCopy := req
	respCopy := resp
	m.appendEventLocked(schemas.NetworkEvent{
		EventType: schemas.NetResponseReceived,
		Request:   &reqCopy,
		Response:  &respCopy,
		Timing:    timing,
	})
}

// RecordFailure marks an in-flight request as failed. Failures for unknown
// request ids are dropped silently.
func (m *Monitor) RecordFailure(requestID, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	req, ok := m.inflight[requestID]
	if !ok {
		return
	}
	delete(m.inflight, requestID)

	m.logger.Debug("Recording network failure",
		zap.String("request_id", requestID), zap.String("error", errMsg))

	m.stats.FailedRequests++

	reqCopy := req
	m.appendEventLocked(schemas.NetworkEvent{
		EventType: schemas.NetRequestFailed,
		Request:   &reqCopy,
		Error:     errMsg,
	})
}

// AddFilter appends a filter to the active set. All filters must match for a
// request to be stored, so adding the same filter twice changes nothing.
func (m *Monitor) AddFilter(filter schemas.NetworkFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Debug("Adding network filter", zap.Any("filter", filter))
	m.filters = append(m.filters, filter)
}

// ClearFilters removes every active filter.
func (m *Monitor) ClearFilters() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Debug("Clearing network filters")
	m.filters = nil
}

// Filters returns a copy of the active filter set.
func (m *Monitor) Filters() []schemas.NetworkFilter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schemas.NetworkFilter, len(m.filters))
	copy(out, m.filters)
	return out
}

// Stats returns a snapshot of the aggregate statistics.
func (m *Monitor) Stats() schemas.NetworkStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.stats
	out.ByResourceType = make(map[string]uint64, len(m.stats.ByResourceType))
	for k, v := range m.stats.ByResourceType {
		out.ByResourceType[k] = v
	}
	out.ByStatusCode = make(map[int]uint64, len(m.stats.ByStatusCode))
	for k, v := range m.stats.ByStatusCode {
		out.ByStatusCode[k] = v
	}
	out.TopHosts = make([]schemas.HostCount, len(m.stats.TopHosts))
	copy(out.TopHosts, m.stats.TopHosts)
	return out
}

// RecentEvents returns up to limit events, newest first.
func (m *Monitor) RecentEvents(limit int) []schemas.NetworkEvent {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.events)
	if limit > n {
		limit = n
	}
	out := make([]schemas.NetworkEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.events[i])
	}
	return out
}

// FilteredEvents returns the stored events matching the given filter, oldest
// first.
func (m *Monitor) FilteredEvents(filter schemas.NetworkFilter) []schemas.NetworkEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schemas.NetworkEvent
	for _, ev := range m.events {
		if eventMatches(ev, filter) {
			out = append(out, ev)
		}
	}
	return out
}

// ExportHAR builds an HTTP Archive from the stored events. Only transactions
// with both request and response become entries, so filtered-out traffic is
// absent even though it counted toward TotalRequests.
func (m *Monitor) ExportHAR() *schemas.HAR {
	m.mu.RLock()
	defer m.mu.RUnlock()

	har := schemas.NewHAR(harCreatorName, harCreatorVersion)
	for _, ev := range m.events {
		if ev.Request == nil || ev.Response == nil {
			continue
		}
		var total float64
		if ev.Timing != nil {
			total = ev.Timing.Total
		}
		har.Log.Entries = append(har.Log.Entries, schemas.HAREntry{
			Request: schemas.HARRequest{
				Method:   ev.Request.Method,
				URL:      ev.Request.URL,
				Headers:  ev.Request.Headers,
				BodySize: int64(len(ev.Request.Body)),
			},
			Response: schemas.HARResponse{
				Status:     ev.Response.StatusCode,
				StatusText: ev.Response.StatusText,
				Headers:    ev.Response.Headers,
				BodySize:   ev.Response.Size,
			},
			Time: total,
			Timings: schemas.HARTimings{
				Blocked: -1,
				DNS:     -1,
				Connect: -1,
				SSL:     -1,
				Send:    0,
				Wait:    -1,
				Receive: -1,
			},
		})
	}
	return har
}

func (m *Monitor) shouldRecordLocked(req schemas.NetworkRequest) bool {
	for _, f := range m.filters {
		if !requestMatches(req, f) {
			return false
		}
	}
	return true
}

func (m *Monitor) appendEventLocked(ev schemas.NetworkEvent) {
	m.events = append(m.events, ev)
	if len(m.events) > m.maxHistory {
		m.events = m.events[1:]
	}
}

func (m *Monitor) updateStatsLocked(req schemas.NetworkRequest, resp schemas.NetworkResponse, timing *schemas.NetworkTiming) {
	m.stats.TotalBytes += uint64(resp.Size)

	m.respCount++
	t := timing.Total
	if m.respCount == 1 {
		m.stats.AvgResponseTime = t
		m.stats.FastestResponse = t
		m.stats.SlowestResponse = t
	} else {
		n := float64(m.respCount)
		m.stats.AvgResponseTime = (m.stats.AvgResponseTime*(n-1) + t) / n
		if t < m.stats.FastestResponse {
			m.stats.FastestResponse = t
		}
		if t > m.stats.SlowestResponse {
			m.stats.SlowestResponse = t
		}
	}

	m.stats.ByResourceType[req.ResourceType]++
	m.stats.ByStatusCode[resp.StatusCode]++

	if u, err := url.Parse(req.URL); err == nil && u.Hostname() != "" {
		m.bumpHostLocked(u.Hostname())
	}
}

// bumpHostLocked keeps a descending top-10 leaderboard; ties stay in
// first-seen order because the sort is stable.
func (m *Monitor) bumpHostLocked(host string) {
	found := false
	for i := range m.stats.TopHosts {
		if m.stats.TopHosts[i].Host == host {
			m.stats.TopHosts[i].Count++
			found = true
			break
		}
	}
	if !found {
		m.stats.TopHosts = append(m.stats.TopHosts, schemas.HostCount{Host: host, Count: 1})
	}

	hosts := m.stats.TopHosts
	for i := 1; i < len(hosts); i++ {
		for j := i; j > 0 && hosts[j].Count > hosts[j-1].Count; j-- {
			hosts[j], hosts[j-1] = hosts[j-1], hosts[j]
		}
	}
	if len(hosts) > topHostsLimit {
		m.stats.TopHosts = hosts[:topHostsLimit]
	}
}

func requestMatches(req schemas.NetworkRequest, f schemas.NetworkFilter) bool {
	if f.URLPattern != "" && !strings.Contains(req.URL, f.URLPattern) {
		return false
	}
	if f.Method != "" && req.Method != f.Method {
		return false
	}
	if f.ResourceType != "" && req.ResourceType != f.ResourceType {
		return false
	}
	return true
}

func eventMatches(ev schemas.NetworkEvent, f schemas.NetworkFilter) bool {
	if ev.Request != nil && !requestMatches(*ev.Request, f) {
		return false
	}
	if f.FailedOnly && ev.EventType != schemas.NetRequestFailed {
		return false
	}
	if f.StatusCodeMin != 0 || f.StatusCodeMax != 0 {
		if ev.Response == nil {
			return false
		}
		if f.StatusCodeMin != 0 && ev.Response.StatusCode < f.StatusCodeMin {
			return false
		}
		if f.StatusCodeMax != 0 && ev.Response.StatusCode > f.StatusCodeMax {
			return false
		}
	}
	return true
}
