package http

import "github.com/labstack/echo/v4"

// Handler is anything that mounts routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// APIResponse is the envelope every JSON endpoint replies with. Data holds
// the payload on success and the list of problems on failure.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
