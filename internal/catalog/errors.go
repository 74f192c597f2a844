package catalog

import "fmt"

// ErrorKind класс ошибки удалённого API
type ErrorKind int

const (
	KindValidation ErrorKind = iota // 409
	KindNotFound                    // 404
	KindBadRequest                  // 400
	KindForbidden                   // 403
	KindServer                      // 500 и всё остальное
)

// APIError типизированная ошибка удалённого API.
// Message показывается пользователю как есть.
type APIError struct {
	Kind    ErrorKind
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog api error %d: %s", e.Code, e.Message)
}

// errorFromEnvelope превращает код ответа API в типизированную ошибку
func errorFromEnvelope(code int, message string, details []string) *APIError {
	if message == "" && len(details) > 0 {
		message = details[0]
	}

	switch code {
	case 409:
		// API кладёт текст ошибки валидации в errors[0]
		if len(details) > 0 {
			message = details[0]
		}
		return &APIError{Kind: KindValidation, Code: code, Message: message}
	case 404:
		return &APIError{Kind: KindNotFound, Code: code, Message: message}
	case 400:
		return &APIError{Kind: KindBadRequest, Code: code, Message: message}
	case 403:
		return &APIError{Kind: KindForbidden, Code: code, Message: message}
	default:
		return &APIError{Kind: KindServer, Code: code, Message: "Internal Server Error"}
	}
}
