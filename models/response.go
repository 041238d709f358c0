package models

// Error codes returned in Response.ErrorCode.
const (
	ErrorCodeMissingGroups   = "missing_groups"
	ErrorCodeInvalidPageName = "invalid_page_name"
	ErrorCodePageNotFound    = "page_not_found"
	ErrorCodePageReadFailed  = "page_read_failed"
	ErrorCodeRenderFailed    = "render_failed"
	ErrorCodeInvalidRequest  = "invalid_request"
)

// Response represents a generic API response structure.
type Response struct {
	Success      int         `json:"success"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorDetails string      `json:"error_details,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}
