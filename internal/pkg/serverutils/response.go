package serverutils

// APIError is the JSON body returned for failed requests.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func ErrorResponse(code int, message string) APIError {
	return APIError{Code: code, Message: message}
}
