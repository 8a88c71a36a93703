package schemas

// APIResponse is the envelope returned by every HTTP endpoint. The facade
// acknowledges queueing, not completion, so Success=true only means the request
// was understood and dispatched; command outcomes arrive on the event stream.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK wraps a payload in a successful envelope.
func OK(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// Fail wraps an error message in a failed envelope.
func Fail(msg string) APIResponse {
	return APIResponse{Success: false, Error: msg}
}
