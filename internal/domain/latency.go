package domain

// LatencyReport summarizes a latency measurement run. Per-host failures are
// counted here, never surfaced as errors; successful < measured is a normal
// outcome.
type LatencyReport struct {
	Total      int         `json:"total_servers"`
	Measured   int         `json:"measured"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Method     string      `json:"method"`
	Servers    []VPNServer `json:"servers"`
}
