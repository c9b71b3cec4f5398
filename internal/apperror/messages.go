package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",
	CodeRequestCancelled:     "Request cancelled",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeGatewayRequestFailed: "Gateway request failed",
	CodeVMQueryFailed:        "Smart contract query failed",
	CodeDecodeFailed:         "Failed to decode contract result",
	CodeInvalidAddress:       "Invalid bech32 address",
	CodeFixtureMissing:       "No fixture registered for query",

	CodePairNotFound:          "No liquidity pair found",
	CodeInsufficientLiquidity: "Pair has an empty reserve",
	CodeTokenPropertiesFailed: "Failed to read token properties",

	CodeBlockStatusFailed: "Failed to read network status",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCacheBackendError: "Cache backend error",
	CodeCacheCodecError:   "Failed to encode or decode cached value",

	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
