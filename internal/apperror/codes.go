package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeRequestCancelled     Code = "REQUEST_CANCELLED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Pricing error codes
const (
	// Gateway / VM query transport
	CodeGatewayRequestFailed Code = "GATEWAY_REQUEST_FAILED"
	CodeVMQueryFailed        Code = "VM_QUERY_FAILED"
	CodeDecodeFailed         Code = "DECODE_FAILED"
	CodeInvalidAddress       Code = "INVALID_ADDRESS"
	CodeFixtureMissing       Code = "FIXTURE_NOT_FOUND"

	// xExchange domain
	CodePairNotFound          Code = "PAIR_NOT_FOUND"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeTokenPropertiesFailed Code = "TOKEN_PROPERTIES_FAILED"

	// Block clock
	CodeBlockStatusFailed Code = "BLOCK_STATUS_FAILED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Cache errors
	CodeCacheBackendError Code = "CACHE_BACKEND_ERROR"
	CodeCacheCodecError   Code = "CACHE_CODEC_ERROR"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
