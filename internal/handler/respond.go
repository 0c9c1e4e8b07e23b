package handler // HTTP handlers of the KidCheck API

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/model"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }

// bind decodes the JSON body into dst and validates it. Any failure is
// reported as model.ErrInvalidInput.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("invalid body: %w", model.ErrInvalidInput)
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("missing or invalid field %s: %w", verrs[0].Field(), model.ErrInvalidInput)
		}
		return fmt.Errorf("%v: %w", err, model.ErrInvalidInput)
	}
	return nil
}

// status maps an error kind to its HTTP status code.
func status(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrAuthFailure), errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// messages holds per-route public messages keyed by error kind.
type messages map[error]string

var defaultMessages = messages{
	model.ErrConflict:     "Already exists",
	model.ErrAuthFailure:  "Invalid credentials",
	model.ErrUnauthorized: "Not authenticated",
	model.ErrForbidden:    "Forbidden",
	model.ErrNotFound:     "Not found",
}

func kindOf(err error) error {
	for _, k := range []error{model.ErrInvalidInput, model.ErrConflict, model.ErrAuthFailure,
		model.ErrUnauthorized, model.ErrForbidden, model.ErrNotFound} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// responder writes the {"error": ...} envelope and logs internal errors.
type responder struct {
	log *slog.Logger
}

func (r responder) fail(c echo.Context, err error, msgs messages) error {
	code := status(err)
	if code == http.StatusInternalServerError {
		r.log.ErrorContext(c.Request().Context(), "request failed",
			slog.String("method", c.Request().Method), slog.String("path", c.Path()), slog.Any("error", err))
		return c.JSON(code, echo.Map{"error": "Internal server error"})
	}
	kind := kindOf(err)
	msg, ok := msgs[kind]
	if !ok {
		msg, ok = defaultMessages[kind]
	}
	if !ok {
		// invalid input: the message is built by our own validation
		msg = strings.TrimSuffix(err.Error(), ": "+model.ErrInvalidInput.Error())
	}
	return c.JSON(code, echo.Map{"error": msg})
}

// failParentRoute reports a wrong role as 401, the contract of routes that
// only parents may call.
func (r responder) failParentRoute(c echo.Context, err error, msgs messages) error {
	if errors.Is(err, model.ErrForbidden) {
		err = model.ErrUnauthorized
	}
	return r.fail(c, err, msgs)
}

func ok(c echo.Context, body echo.Map) error {
	body["success"] = true
	return c.JSON(http.StatusOK, body)
}
