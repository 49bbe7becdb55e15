package dto

import (
	"net/http"

	appevent "github.com/admarket/backend/internal/application/event"
	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
)

// Error codes produced only at the HTTP edge
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
	ErrCodeTokenRevoked = "TOKEN_REVOKED"
	ErrCodeRouteMissing = "ROUTE_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Malformed input -> 400 Bad Request
	ErrCodeBadRequest:              http.StatusBadRequest,
	shared.CodeValidation:          http.StatusBadRequest,
	shared.CodeInvalidInput:        http.StatusBadRequest,
	account.CodeInvalidAmount:      http.StatusBadRequest,
	ledger.CodeInvalidPaymentMethod: http.StatusBadRequest,
	dispute.CodeInvalidDecision:    http.StatusBadRequest,
	dispute.CodeMissingRefundAmount: http.StatusBadRequest,

	// Auth errors
	shared.CodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTokenRevoked:     http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	// Missing entities -> 404 Not Found
	shared.CodeNotFound:           http.StatusNotFound,
	ErrCodeRouteMissing:           http.StatusNotFound,
	campaign.CodeCampaignNotFound: http.StatusNotFound,
	account.CodeSellerNotFound:    http.StatusNotFound,
	account.CodeChannelNotFound:   http.StatusNotFound,
	dispute.CodeDisputeNotFound:   http.StatusNotFound,
	ledger.CodeWithdrawalNotFound: http.StatusNotFound,
	ledger.CodeTransactionNotFound: http.StatusNotFound,
	appevent.CodeEntryNotFound:    http.StatusNotFound,

	// Business rule errors -> 422 Unprocessable Entity
	shared.CodeInvalidStateTransition: http.StatusUnprocessableEntity,
	shared.CodeInsufficientFunds:      http.StatusUnprocessableEntity,

	// Retryable conflicts -> 409 Conflict
	shared.CodeContention:          http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,

	shared.CodeIntegrityFailure: http.StatusInternalServerError,
	escrow.CodeProofUploadUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
