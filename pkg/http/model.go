package http

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error" example:"amount is required"`
	Code    string            `json:"code" example:"ERR_REQUIRED"`
	Details []ValidationError `json:"details,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"amount"`
	Message string                 `json:"message,omitempty" example:"amount is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse represents a list response with its size.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

// MessageResponse acknowledges a write.
type MessageResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}
