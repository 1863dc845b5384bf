package types

import "encoding/json"

// SuccessEnvelope wraps every successful API payload.
type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// APIError is the wire representation of a request failure.
type APIError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// ErrorEnvelope wraps every failed API payload.
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// ListEnvelope is the data shape for paginated list responses.
type ListEnvelope struct {
	Items      interface{} `json:"items"`
	Pagination interface{} `json:"pagination"`
}
