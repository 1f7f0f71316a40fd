package dtperr

import "fmt"

// ErrorCode can be used as a normal error without reason.
type ErrorCode uint32

// The error codes defined by DTP
const (
	// InternalError marks a defect on our side
	InternalError ErrorCode = 1
	// DecodingError means a packet header couldn't be parsed
	DecodingError ErrorCode = 2
)

func (e ErrorCode) String() string {
	switch e {
	case InternalError:
		return "InternalError"
	case DecodingError:
		return "DecodingError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint32(e))
	}
}

func (e ErrorCode) Error() string {
	return e.String()
}
