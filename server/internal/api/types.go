package api

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Messages    int    `json:"messages"`
	Connections int    `json:"connections"`
}
