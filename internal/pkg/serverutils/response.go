package serverutils

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Error   ErrorDetail `json:"error"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse builds an error body for statuses that carry no pipeline kind.
func ErrorResponse(code int, message string) ErrorBody {
	return ErrorBody{
		Success: false,
		Code:    code,
		Error:   ErrorDetail{Kind: kindForStatus(code), Message: message},
	}
}

func kindForStatus(code int) string {
	switch {
	case code == 404:
		return "NOT_FOUND"
	case code >= 400 && code < 500:
		return "VALIDATION"
	}
	return "INTERNAL"
}
