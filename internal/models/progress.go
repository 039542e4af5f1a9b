package models

// LoadingProgress describes the advancement of a running fetch cycle.
// It is advisory only and must never gate correctness of the final result;
// counters are reset to zero at the start and end of every cycle.
type LoadingProgress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Stage     string `json:"stage"`
}
