package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Error is a failure with a client-facing status and message.
type Error struct {
	Status  int
	Message string
	Fields  []FieldError
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

var (
	errInvalidBody      = newError(http.StatusBadRequest, "Invalid request body")
	errProductNotFound  = newError(http.StatusNotFound, "Product not found")
	errProductExists    = newError(http.StatusBadRequest, "Product already exists")
	errSKUTaken         = newError(http.StatusBadRequest, "Product with this SKU already exists")
	errImageTaken       = newError(http.StatusBadRequest, "Product image already exists")
	errInvalidReference = newError(http.StatusBadRequest, "Unknown currency, category or tag")
)

type errorResponse struct {
	Success    bool         `json:"success"`
	StatusCode int          `json:"statusCode"`
	Message    string       `json:"message"`
	Errors     []FieldError `json:"errors,omitempty"`
}

// ErrorHandler writes every error returned by a handler or middleware as a
// JSON envelope. Route and method misses become a 404 "resource not found";
// anything unrecognised is logged and hidden behind a 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		apiErr  *Error
		httpErr *echo.HTTPError
		resp    errorResponse
	)
	switch {
	case errors.As(err, &apiErr):
		resp = errorResponse{StatusCode: apiErr.Status, Message: apiErr.Message, Errors: apiErr.Fields}
	case errors.As(err, &httpErr) && (httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusMethodNotAllowed):
		err = c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "resource not found"})
		if err != nil {
			logrus.WithError(err).Error("Failed to write error response")
		}
		return
	case errors.As(err, &httpErr):
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
		resp = errorResponse{StatusCode: httpErr.Code, Message: message}
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"uri":    c.Request().RequestURI,
		}).Error("Unhandled request error")
		resp = errorResponse{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.StatusCode)
	} else {
		err = c.JSON(resp.StatusCode, resp)
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to write error response")
	}
}
