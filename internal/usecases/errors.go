package usecases

import "errors"

var (
	ErrLimitReached       = errors.New("item limit reached")
	ErrNotConfirmed       = errors.New("delete not confirmed")
	ErrIndexOutOfRange    = errors.New("no item at that position")
	ErrBusinessOnly       = errors.New("available on the Business plan only")
	ErrInvalidName        = errors.New("name must be 1-50 characters")
	ErrAccountLimit       = errors.New("account limit reached")
	ErrDefaultAccount     = errors.New("the default account cannot be deleted")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrApiKeyLimit        = errors.New("api key limit reached")
	ErrUnknownApiKey      = errors.New("unknown api key")
	ErrImportRejected     = errors.New("import rejected")
	ErrUnauthorizedSender = errors.New("message from unauthorized sender")
	ErrUnknownMessageType = errors.New("message type not allowed")
	ErrRateLimited        = errors.New("inbound rate limit exceeded")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoContentScript    = errors.New("stream page not connected")
	ErrAlertsDisabled     = errors.New("seller alerts are not configured")
)
