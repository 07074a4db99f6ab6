package errs

// Error codes used across the gateway. Codes are part of the wire contract
// (the error envelope carries them) and must stay stable.
const (
	CodeNotAuthenticated   = 1101
	CodeAuthFailed         = 1102
	CodeNotFound           = 1201
	CodeValidation         = 1301
	CodeMalformed          = 1302
	CodePersistence        = 1401
	CodeResourceExhausted  = 1501
	CodeMaxRetriesExceeded = 1601
)

var (
	// ErrNotAuthenticated : privileged operation on a connection with no owner.
	ErrNotAuthenticated = NewCodeError(CodeNotAuthenticated, "Not authenticated")
	// ErrAuthFailed : the presented credential did not verify.
	ErrAuthFailed = NewCodeError(CodeAuthFailed, "Authentication failed")
	// ErrNotFound : unknown connection or room id.
	ErrNotFound = NewCodeError(CodeNotFound, "Not found")
	// ErrValidation : message body rejected before persistence.
	ErrValidation = NewCodeError(CodeValidation, "Validation failed")
	// ErrMalformed : inbound envelope could not be decoded.
	ErrMalformed = NewCodeError(CodeMalformed, "Malformed envelope")
	// ErrPersistence : the data store refused the write; nothing was broadcast.
	ErrPersistence = NewCodeError(CodePersistence, "Persistence failed")
	// ErrResourceExhausted : registry at capacity, admission rejected.
	ErrResourceExhausted = NewCodeError(CodeResourceExhausted, "Resource exhausted")
	// ErrMaxRetriesExceeded : client gave up reconnecting; manual Reconnect required.
	ErrMaxRetriesExceeded = NewCodeError(CodeMaxRetriesExceeded, "Max retries exceeded")
)
