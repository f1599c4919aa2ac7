package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDecision      ErrorCode = 102
	ErrCodeInvalidBar           ErrorCode = 103
	ErrCodeInvalidInterval      ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeInsufficientData      ErrorCode = 203
	ErrCodeInvalidMarketData     ErrorCode = 204

	// Decision procedure errors (300-399)
	ErrCodeDecisionFailed  ErrorCode = 300
	ErrCodeDecisionTimeout ErrorCode = 301
	ErrCodeUnknownStrategy ErrorCode = 302

	// Ledger errors (400-499)
	ErrCodePositionAlreadyOpen ErrorCode = 400
	ErrCodeNoOpenPosition      ErrorCode = 401
	ErrCodeInsufficientBalance ErrorCode = 402

	// Backtest errors (500-599)
	ErrCodeBacktestConfigError ErrorCode = 500
	ErrCodeBacktestInitFailed  ErrorCode = 501
	ErrCodeBacktestAborted     ErrorCode = 502
	ErrCodeResultWriteFailed   ErrorCode = 503
	ErrCodeVersionMismatch     ErrorCode = 504

	// Market data acquisition errors (600-699)
	ErrCodeMarketDataFetchFailed ErrorCode = 600
	ErrCodeMarketDataWriteFailed ErrorCode = 601
	ErrCodeMarketDataParseFailed ErrorCode = 602

	// Server errors (700-799)
	ErrCodeResultNotFound ErrorCode = 700
)
