package apierr

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// Envelope is the uniform JSON body returned for every HTTP error
// response, mirroring the shape of a gateway error frame's data so
// clients handle both surfaces the same way (§6, §7).
type Envelope struct {
	Error   bool   `json:"error"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[Code]int{
	CodeValidation:          http.StatusBadRequest,
	CodeAuth:                http.StatusUnauthorized,
	CodeProviderUnavailable: http.StatusServiceUnavailable,
	CodeToolExecution:       http.StatusBadGateway,
	CodeConfirmationCancel:  http.StatusConflict,
	CodeTimeout:             http.StatusGatewayTimeout,
	CodeReadOnlyMode:        http.StatusForbidden,
	CodeInternal:            http.StatusInternalServerError,
}

// HTTPErrorHandler translates a taxonomy *Error (or a bare echo.HTTPError
// from request binding) into the uniform envelope, registered as
// echo's HTTPErrorHandler hook.
func HTTPErrorHandler(err error, c *echo.Context) {
	if c.Response().Committed {
		return
	}

	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		msg := http.StatusText(herr.Code)
		if s, ok := herr.Message.(string); ok && s != "" {
			msg = s
		}
		code := CodeValidation
		if herr.Code >= http.StatusInternalServerError {
			code = CodeInternal
		}
		_ = c.JSON(herr.Code, Envelope{Error: true, Code: code, Message: msg})
		return
	}

	var aerr *Error
	if errors.As(err, &aerr) {
		status, ok := statusByCode[aerr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		_ = c.JSON(status, Envelope{Error: true, Code: aerr.Code, Message: aerr.Message})
		return
	}

	slog.Error("unhandled error reaching HTTP boundary", "error", err, "path", c.Request().URL.Path)
	_ = c.JSON(http.StatusInternalServerError, Envelope{Error: true, Code: CodeInternal, Message: "internal server error"})
}
