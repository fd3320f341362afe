package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/gin-gonic/gin"
)

var validationErrors = []error{
	shared.ErrInvalidAmount,
	shared.ErrInvalidAccount,
	shared.ErrInvalidEntryType,
	shared.ErrIdempotencyKeyRequired,
	shared.ErrInvalidPurchase,
	shared.ErrNotRefundable,
	shared.ErrAlreadyRefunded,
	commission.ErrInvalidPercent,
	commission.ErrInvalidCourse,
	commission.ErrInvalidTrainer,
	pricing.ErrInvalidPrice,
	redemption.ErrInvalidCode,
	redemption.ErrInvalidMaxUses,
	redemption.ErrInvalidCoins,
	redemption.ErrInvalidLifetime,
	ledger.ErrInvalidCursor,
}

// respondError maps a ledger error onto the API envelope. Server side detail
// stays in the log.
func respondError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	switch {
	case errors.Is(err, shared.ErrInsufficientBalance):
		RespondConflict(c, "INSUFFICIENT_BALANCE", "Not enough DanceCoins for this purchase")
	case errors.Is(err, redemption.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, "CODE_NOT_FOUND", "This code does not exist")
	case errors.Is(err, redemption.ErrExpired):
		RespondWithError(c, http.StatusGone, "CODE_EXPIRED", "This code has expired")
	case errors.Is(err, redemption.ErrExhausted):
		RespondConflict(c, "CODE_EXHAUSTED", "This code has already been fully used")
	case errors.Is(err, redemption.ErrAlreadyRedeemed):
		RespondConflict(c, "CODE_ALREADY_REDEEMED", "You have already redeemed this code")
	case errors.Is(err, redemption.ErrDuplicateCode):
		RespondConflict(c, "DUPLICATE_CODE", "A key with this code already exists")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		RespondConflict(c, "IDEMPOTENCY_CONFLICT", "The idempotency key was already used for a different operation")
	case errors.Is(err, ledger.ErrEntryNotFound{}):
		RespondNotFound(c, "Ledger entry not found")
	case errors.Is(err, commission.ErrCommissionNotFound{}):
		RespondNotFound(c, "Commission not found")
	case errors.Is(err, wallet.ErrWalletNotFound{}):
		RespondNotFound(c, "Wallet not found")
	case errors.Is(err, shared.ErrIndeterminate):
		logger.Error("Ledger outcome unknown", "operation", operation, "error", err)
		RespondUnavailable(c)
	case errors.Is(err, shared.ErrInvariantViolation{}):
		logger.Error("Ledger invariant violated", "operation", operation, "error", err)
		RespondInternalError(c)
	case isValidation(err):
		RespondBadRequest(c, err.Error())
	default:
		logger.Error("Ledger operation failed", "operation", operation, "error", err)
		RespondInternalError(c)
	}
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
