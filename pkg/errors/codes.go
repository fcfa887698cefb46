package errors

type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInactiveChannel    Code = "INACTIVE_CHANNEL"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeExternalDelivery   Code = "EXTERNAL_DELIVERY"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus maps an error code to the response status used by handlers.
// InactiveChannel deliberately maps to 200: the upstream platform retries any
// non-2xx forever, and a disabled channel must not be retried.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return 400
	case CodeUnauthenticated:
		return 401
	case CodeNotFound:
		return 404
	case CodeInactiveChannel:
		return 200
	case CodeFailedPrecondition:
		return 409
	case CodeUnavailable:
		return 503
	default:
		return 500
	}
}
