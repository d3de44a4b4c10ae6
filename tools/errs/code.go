package errs

// Error taxonomy codes. Kept small on purpose: every client-visible failure
// of the messaging core maps onto one of these.
const (
	ServerInternalError = 500

	RecordNotFoundError = 1101 // unknown or out-of-scope conversation/message/listing
	ArgsError           = 1102 // malformed cursor, seq outside the conversation, bad payload
	ConflictError       = 1103 // seq allocation conflict after internal retries
	UnavailableError    = 1104 // storage or dispatch transiently unreachable

	TokenInvalidError = 1201
	TokenExpiredError = 1202
)

var (
	ErrInternal     = NewCodeError(ServerInternalError, "server internal error")
	ErrNotFound     = NewCodeError(RecordNotFoundError, "record not found")
	ErrArgs         = NewCodeError(ArgsError, "invalid argument")
	ErrConflict     = NewCodeError(ConflictError, "conflict")
	ErrUnavailable  = NewCodeError(UnavailableError, "temporarily unavailable")
	ErrTokenInvalid = NewCodeError(TokenInvalidError, "token invalid")
	ErrTokenExpired = NewCodeError(TokenExpiredError, "token expired")
)
