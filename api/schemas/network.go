package schemas

// NetworkRequest is an instrumented request observed inside the page. IDs are
// generated by the injection script and are opaque to the monitor.
type NetworkRequest struct {
	ID           string            `json:"id"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body,omitempty"` // base64 when binary
	Timestamp    int64             `json:"timestamp"`      // epoch milliseconds
	Initiator    string            `json:"initiator,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	Blocked      bool              `json:"blocked,omitempty"`
}

// NetworkResponse is the counterpart of a NetworkRequest, correlated by
// RequestID.
type NetworkResponse struct {
	RequestID  string            `json:"request_id"`
	StatusCode int               `json:"status_code"`
	StatusText string            `json:"status_text,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	Timestamp  int64             `json:"timestamp"`
	Size       int64             `json:"size"`
	FromCache  bool              `json:"from_cache,omitempty"`
	MimeType   string            `json:"mime_type,omitempty"`
}

// NetworkEventType discriminates the lifecycle events kept in the monitor's
// bounded history.
type NetworkEventType string

const (
	NetRequestStarted   NetworkEventType = "request_started"
	NetRequestBlocked   NetworkEventType = "request_blocked"
	NetResponseReceived NetworkEventType = "response_received"
	NetResponseFinished NetworkEventType = "response_finished"
	NetRequestFailed    NetworkEventType = "request_failed"
	NetLoadingFinished  NetworkEventType = "loading_finished"
)

// NetworkEvent pairs a lifecycle marker with whichever payloads are known at
// that point.
type NetworkEvent struct {
	EventType NetworkEventType `json:"event_type"`
	Request   *NetworkRequest  `json:"request,omitempty"`
	Response  *NetworkResponse `json:"response,omitempty"`
	Timing    *NetworkTiming   `json:"timing,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// NetworkTiming is the timing breakdown for one transaction, in milliseconds.
// Only Total can be derived from page-side timestamps; the rest stay nil unless
// the host supplies them.
type NetworkTiming struct {
	DNSLookup *float64 `json:"dns_lookup,omitempty"`
	Connect   *float64 `json:"connect,omitempty"`
	SSL       *float64 `json:"ssl,omitempty"`
	TTFB      *float64 `json:"ttfb,omitempty"`
	Download  *float64 `json:"download,omitempty"`
	Total     float64  `json:"total"`
}

// NetworkFilter restricts which requests are stored. A request is recorded iff
// every set field matches; an empty filter set records everything.
type NetworkFilter struct {
	URLPattern    string `json:"url_pattern,omitempty"`
	Method        string `json:"method,omitempty"`
	ResourceType  string `json:"resource_type,omitempty"`
	StatusCodeMin int    `json:"status_code_min,omitempty"`
	StatusCodeMax int    `json:"status_code_max,omitempty"`
	FailedOnly    bool   `json:"failed_only,omitempty"`
}

// HostCount is one entry of the top-hosts leaderboard.
type HostCount struct {
	Host  string `json:"host"`
	Count uint64 `json:"count"`
}

// NetworkStats aggregates everything the monitor has seen since Start.
// FailedRequests never exceeds TotalRequests.
type NetworkStats struct {
	TotalRequests   uint64            `json:"total_requests"`
	FailedRequests  uint64            `json:"failed_requests"`
	TotalBytes      uint64            `json:"total_bytes"`
	AvgResponseTime float64           `json:"avg_response_time"`
	FastestResponse float64           `json:"fastest_response"`
	SlowestResponse float64           `json:"slowest_response"`
	ByResourceType  map[string]uint64 `json:"by_resource_type"`
	ByStatusCode    map[int]uint64    `json:"by_status_code"`
	TopHosts        []HostCount       `json:"top_hosts"`
}
