package dtperr

import "fmt"

// A DTPError consists of an error code plus an error reason
type DTPError struct {
	ErrorCode    ErrorCode
	ErrorMessage string
}

// Error creates a new DTPError instance
func Error(errorCode ErrorCode, errorMessage string) *DTPError {
	return &DTPError{
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}
}

func (e *DTPError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode.String(), e.ErrorMessage)
}

// ToDTPError converts an arbitrary error to a DTPError. It leaves DTPErrors
// unchanged, and properly handles `ErrorCode`s.
func ToDTPError(err error) *DTPError {
	switch e := err.(type) {
	case *DTPError:
		return e
	case ErrorCode:
		return Error(e, "")
	}
	return Error(InternalError, err.Error())
}

var _ error = &DTPError{}
