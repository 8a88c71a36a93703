package schemas

// -- HAR (HTTP Archive) Schemas --

// HAR is the root object of the HTTP Archive format. See
// http://www.softwareishard.com/blog/har-1-2-spec/ for the full specification.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog holds creator metadata and the recorded entries.
type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

// HARCreator identifies the tool that produced the archive.
type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry is a single request/response pair. Entries are emitted only for
// transactions where both sides were observed.
type HAREntry struct {
	Request  HARRequest  `json:"request"`
	Response HARResponse `json:"response"`
	Time     float64     `json:"time"`
	Timings  HARTimings  `json:"timings"`
}

// HARRequest carries the request half of an entry. Headers keep the map form
// the monitor records rather than the HAR 1.2 name/value list; consumers of
// this archive are the workbench's own tools.
type HARRequest struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	BodySize int64             `json:"bodySize"`
}

// HARResponse carries the response half of an entry.
type HARResponse struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	BodySize   int64             `json:"bodySize"`
}

// HARTimings is the phase breakdown of one transaction. Unknown subtotals use
// the HAR sentinel -1.
type HARTimings struct {
	Blocked float64 `json:"blocked"`
	DNS     float64 `json:"dns"`
	Connect float64 `json:"connect"`
	SSL     float64 `json:"ssl"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// NewHAR creates an empty archive stamped with the given creator identity.
func NewHAR(name, version string) *HAR {
	return &HAR{
		Log: HARLog{
			Version: "1.2",
			Creator: HARCreator{Name: name, Version: version},
			Entries: make([]HAREntry, 0),
		},
	}
}
