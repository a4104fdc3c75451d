package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Domain-specific error codes
const (
	// Chain/RPC errors
	CodeChainConnectionFailed Code = "CHAIN_CONNECTION_FAILED"
	CodeChainSubscribeFailed  Code = "CHAIN_SUBSCRIBE_FAILED"
	CodeChainRPCError         Code = "CHAIN_RPC_ERROR"
	CodeBlockNotFound         Code = "BLOCK_NOT_FOUND"
	CodeGasEstimationFailed   Code = "GAS_ESTIMATION_FAILED"

	// Quoting errors
	CodeQuoteFailed        Code = "QUOTE_FAILED"
	CodeMulticallFailed    Code = "MULTICALL_FAILED"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeInvalidQuote       Code = "INVALID_QUOTE"

	// Pool metadata errors
	CodePoolFetchFailed  Code = "POOL_FETCH_FAILED"
	CodeAnalyticsError   Code = "ANALYTICS_ERROR"
	CodeSnapshotNotFound Code = "SNAPSHOT_NOT_FOUND"

	// Routing errors
	CodeNoCandidatePath Code = "NO_CANDIDATE_PATH"
	CodeUnknownToken    Code = "UNKNOWN_TOKEN"

	// Execution errors
	CodeExecutionReverted Code = "EXECUTION_REVERTED"
	CodeExecutionTimeout  Code = "EXECUTION_TIMEOUT"
	CodeSigningFailed     Code = "SIGNING_FAILED"
	CodeGasPriceTooHigh   Code = "GAS_PRICE_TOO_HIGH"

	// Cache/store errors
	CodeCacheMiss        Code = "CACHE_MISS"
	CodeCacheStoreError  Code = "CACHE_STORE_ERROR"
	CodeRecordStoreError Code = "RECORD_STORE_ERROR"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
