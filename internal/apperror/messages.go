package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Chain/RPC errors
	CodeChainConnectionFailed: "Failed to connect to chain node",
	CodeChainSubscribeFailed:  "Failed to subscribe to chain events",
	CodeChainRPCError:         "Chain RPC call failed",
	CodeBlockNotFound:         "Block not found",
	CodeGasEstimationFailed:   "Gas estimation failed",

	// Quoting errors
	CodeQuoteFailed:        "Failed to quote route",
	CodeMulticallFailed:    "Multicall batch failed",
	CodeContractCallFailed: "Smart contract call failed",
	CodeInvalidQuote:       "Invalid quote data",

	// Pool metadata errors
	CodePoolFetchFailed:  "Failed to fetch pool metadata",
	CodeAnalyticsError:   "Analytics endpoint error",
	CodeSnapshotNotFound: "Pool snapshot not found",

	// Routing errors
	CodeNoCandidatePath: "No candidate pool for hop",
	CodeUnknownToken:    "Unknown token",

	// Execution errors
	CodeExecutionReverted: "Execution transaction reverted",
	CodeExecutionTimeout:  "Execution transaction timed out",
	CodeSigningFailed:     "Transaction signing failed",
	CodeGasPriceTooHigh:   "Gas price above configured ceiling",

	// Cache/store errors
	CodeCacheMiss:        "Cache miss",
	CodeCacheStoreError:  "Cache store operation failed",
	CodeRecordStoreError: "Trade record store operation failed",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
