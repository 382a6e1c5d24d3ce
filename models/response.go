package models

// ErrorResponse is written by the API for any non-2xx outcome.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	CacheEntries int    `json:"cache_entries"`
	Version      string `json:"version"`
}
