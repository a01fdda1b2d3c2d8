// Package handler serves the inventory REST API and its websocket change feed.
//
// Every successful mutation on the REST side is turned into a
// model.ChangeEvent and handed to an events.Publisher; the websocket
// handler is one such publisher.
package handler

// Version is reported by /health and stamped on telemetry resources.
const Version = "1.0.0"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status string `json:"status"`
}
