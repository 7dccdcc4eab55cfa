package charge

import (
	"fmt"
	"net/http"

	apperrors "github.com/s1037989/stripepayment/pkg/errors"
)

// MaxStatementDescriptor is the longest statement descriptor, in characters,
// the provider accepts.
const MaxStatementDescriptor = 22

// Local validation errors. They are reported before any network call.
var (
	ErrAmountRequired   = localError("AMOUNT_REQUIRED", "amount required")
	ErrCurrencyRequired = localError("CURRENCY_REQUIRED", "currency required")
	ErrSourceRequired   = localError("SOURCE_REQUIRED", "source/token required")
	ErrIDRequired       = localError("ID_REQUIRED", "id required")

	ErrStatementDescriptorTooLong = localError("STATEMENT_DESCRIPTOR_TOO_LONG",
		fmt.Sprintf("statement_descriptor is too long (max %d characters)", MaxStatementDescriptor))
)

func localError(code, message string) *apperrors.AppError {
	return apperrors.New(code, message, http.StatusBadRequest, apperrors.ErrInvalidInput)
}
