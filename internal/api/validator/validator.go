package validator

import (
	"time"

	"github.com/dukapay/payments/internal/metrics"
	"github.com/go-playground/validator/v10"
)

type Error struct {
	Error       bool
	FailedField string
	Tag         string
	Value       interface{}
}

type IXValidator interface {
	Validate(data interface{}) []Error
}

type XValidator struct {
	validator *validator.Validate
	metrics   *metrics.Metrics
}

func NewXValidator(validator *validator.Validate, metrics *metrics.Metrics) IXValidator {
	for key, function := range valid {
		validator.RegisterValidation(key, function)
	}

	return &XValidator{
		validator: validator,
		metrics:   metrics,
	}
}

func (x XValidator) Validate(data interface{}) []Error {
	start := time.Now()

	var validationErrors []Error

	errs := x.validator.Struct(data)
	if errs != nil {
		for _, err := range errs.(validator.ValidationErrors) {
			var elem Error
			elem.FailedField = err.Field()
			elem.Tag = err.Tag()
			elem.Value = err.Value()
			elem.Error = true
			validationErrors = append(validationErrors, elem)

			if x.metrics != nil {
				x.metrics.RecordValidationError(elem.FailedField, elem.Tag)
			}
		}
	}

	if x.metrics != nil {
		endpoint := "validation_success"
		if len(validationErrors) > 0 {
			endpoint = "validation_error"
		}
		x.metrics.RecordValidationDuration(endpoint, time.Since(start))
	}

	return validationErrors
}
