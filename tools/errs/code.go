package errs

// Error codes shared between socket error frames and HTTP responses.
const (
	ServerInternalError = 500

	AuthFailedError       = 1101 // missing/invalid/expired credentials
	ForbiddenError        = 1102 // authenticated but not allowed
	RecordNotFoundError   = 1103
	ArgsError             = 1104 // malformed payload
	StoreUnavailableError = 1201 // persistence or pub/sub failure
)

var (
	ErrInternal         = NewCodeError(ServerInternalError, "internal error")
	ErrAuthFailed       = NewCodeError(AuthFailedError, "authentication failed")
	ErrForbidden        = NewCodeError(ForbiddenError, "forbidden")
	ErrNotFound         = NewCodeError(RecordNotFoundError, "record not found")
	ErrArgs             = NewCodeError(ArgsError, "invalid argument")
	ErrStoreUnavailable = NewCodeError(StoreUnavailableError, "store unavailable")
)
