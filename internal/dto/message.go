package dto

// Message is the body of the text snapshot endpoints.
type Message struct {
	Message string `json:"message"`
}

// ErrorResponse is returned by JSON endpoints on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
