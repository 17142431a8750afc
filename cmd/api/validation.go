package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// fieldValueError ties a value error to the request field it was read from.
type fieldValueError struct {
	field string
	err   error
}

func (e *fieldValueError) Error() string { return e.err.Error() }

func (e *fieldValueError) Unwrap() error { return e.err }

func parseClock(field, s string) (models.Clock, error) {
	c, err := models.ParseClock(s)
	if err != nil {
		return 0, &fieldValueError{field: field, err: err}
	}
	return c, nil
}

var registerOnce sync.Once

// registerValidators installs the court_status rule on gin's validator and
// makes it report json field names.
func registerValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin binding validator is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if err = v.RegisterValidation("court_status", validateCourtStatus); err != nil {
			return
		}
		err = v.RegisterValidation("cents", validateCents)
	})
	return err
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateCourtStatus(fl validator.FieldLevel) bool {
	return models.CourtStatus(fl.Field().String()).Valid()
}

// validateCents accepts amounts with at most two decimal places.
func validateCents(fl validator.FieldLevel) bool {
	cents := fl.Field().Float() * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

// validationDetails turns a binding or value error into per-field messages.
func validationDetails(err error) []fieldError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make([]fieldError, 0, len(ve))
		for _, fe := range ve {
			details = append(details, fieldError{Field: fe.Field(), Message: ruleMessage(fe)})
		}
		return details
	}

	var fve *fieldValueError
	if errors.As(err, &fve) {
		return []fieldError{{Field: fve.field, Message: fve.err.Error()}}
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return []fieldError{{Field: ute.Field, Message: fmt.Sprintf("must be a %s", ute.Type)}}
	}

	switch {
	case errors.Is(err, models.ErrInvalidDate):
		return []fieldError{{Field: "date", Message: err.Error()}}
	case errors.Is(err, models.ErrInvalidTimeRange):
		return []fieldError{{Field: "time_end", Message: err.Error()}}
	case errors.Is(err, models.ErrInvalidStatus):
		return []fieldError{{Field: "status", Message: err.Error()}}
	default:
		return []fieldError{{Message: err.Error()}}
	}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "court_status":
		return models.ErrInvalidStatus.Error()
	case "cents":
		return "must have at most two decimal places"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
