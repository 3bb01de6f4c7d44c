package chessdto

import "errors"

// DomainError is the presentation form of a rejected game action.
// Code is stable across locales; Message is already localized.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess game error"
}

// AsDomainError unwraps err into a DomainError when one is in its chain.
func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return DomainError{}, false
}
