package errors

var (
	ErrUnknown            = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument    = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound           = New(ERR_NOT_FOUND, "not found")
	ErrProcessing         = New(ERR_PROCESSING, "error processing")
	ErrConfiguration      = New(ERR_CONFIGURATION, "configuration error")
	ErrContext            = New(ERR_CONTEXT, "context error")
	ErrContextCanceled    = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError              = New(ERR_ERROR, "generic error")
	ErrBlockNotFound      = New(ERR_BLOCK_NOT_FOUND, "block not found")
	ErrBlockInvalid       = New(ERR_BLOCK_INVALID, "block invalid")
	ErrTxInvalid          = New(ERR_TX_INVALID, "tx invalid")
	ErrTxAlreadyExists    = New(ERR_TX_ALREADY_EXISTS, "tx already exists")
	ErrMessageInvalid     = New(ERR_MESSAGE_INVALID, "message invalid")
	ErrInsufficientFunds  = New(ERR_INSUFFICIENT_FUNDS, "insufficient funds")
	ErrServiceUnavailable = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceError       = New(ERR_SERVICE_ERROR, "service error")
	ErrStorageUnavailable = New(ERR_STORAGE_UNAVAILABLE, "storage unavailable")
	ErrStorageError       = New(ERR_STORAGE_ERROR, "storage error")
	ErrNetworkError       = New(ERR_NETWORK_ERROR, "network error")
	ErrNetworkTimeout     = New(ERR_NETWORK_TIMEOUT, "network timeout")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_NOT_FOUND, message, params...)
}
func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}
func NewTxInvalidError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID, message, params...)
}
func NewTxAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_TX_ALREADY_EXISTS, message, params...)
}
func NewMessageInvalidError(message string, params ...interface{}) error {
	return New(ERR_MESSAGE_INVALID, message, params...)
}
func NewInsufficientFundsError(message string, params ...interface{}) error {
	return New(ERR_INSUFFICIENT_FUNDS, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewStorageUnavailableError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_UNAVAILABLE, message, params...)
}
func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}
func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}
