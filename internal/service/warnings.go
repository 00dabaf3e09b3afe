package service

import (
	"time"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

// Warning is a non-fatal problem reported alongside a successful mutation,
// such as an undeliverable notification.
type Warning struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Field   string              `json:"field,omitempty"`
}

func warningFrom(err error) Warning {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeDeliveryFailure
	}
	return Warning{Code: code, Message: err.Error(), Field: apperrors.GetField(err)}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
