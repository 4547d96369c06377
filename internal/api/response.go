package api

// AppError is the error body of the response envelope.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Data  interface{}    `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *AppError      `json:"error,omitempty"`
}

func Success(data interface{}, meta map[string]any) APIResponse {
	return APIResponse{Data: data, Meta: meta}
}

func NewAppError(status int, msg string) APIResponse {
	return APIResponse{Error: &AppError{Code: status, Message: msg}}
}
