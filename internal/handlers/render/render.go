package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/urfube/internal/apperrors"
)

const (
	ValidationErrorType = "validation_failed"
	ServiceErrorType    = "service_error"
)

var validate = validator.New()

func init() {
	// Return on 'TagName' json tag instead of struct name
	// Look at documentation of 'RegisterTagNameFunc' for more details
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		// skip if tag key says it should be ignored
		if name == "-" {
			return ""
		}
		return name
	})

	// Let numeric tags (gt, gte, ...) work on decimal fields
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    int               `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// Render ServiceError
func ServiceError(w http.ResponseWriter, error string, code int) {
	response := ErrorResponse{
		Error:   ServiceErrorType,
		Message: error,
	}

	JSONWithStatus(w, response, code)
}

// Render application error with its stable code
func AppError(w http.ResponseWriter, err *apperrors.Error, status int) {
	response := ErrorResponse{
		Error:   ServiceErrorType,
		Code:    err.Code,
		Message: err.Message,
	}

	JSONWithStatus(w, response, status)
}

// Error renders any error returned by services
// Application errors keep their code, the rest are hidden behind 500
func Error(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	AppError(w, appErr, StatusOf(appErr))
}

// HTTP status matching application error
func StatusOf(err *apperrors.Error) int {
	switch err {
	case apperrors.ErrAuth, apperrors.ErrCredentials, apperrors.ErrExpiration, apperrors.ErrWrongUserInfo:
		return http.StatusUnauthorized
	case apperrors.ErrPermission:
		return http.StatusForbidden
	case apperrors.ErrUserAlreadyExists, apperrors.ErrVideoAlreadyExists:
		return http.StatusConflict
	case apperrors.ErrUserNotFound, apperrors.ErrVideoNotFound, apperrors.ErrCommentNotFound:
		return http.StatusNotFound
	case apperrors.ErrSelfSubscription:
		return http.StatusBadRequest
	case apperrors.ErrS3Client, apperrors.ErrVideoUploadFailed:
		return http.StatusBadGateway
	case apperrors.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validate checks value by its 'validate' struct tags
// Failed validation is always validator.ValidationErrors
func Validate(value any) error {
	err := validate.Struct(value)

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("value can not be validated: %w", err)
	}
	return err
}

// User friendly message for every failed field
func FieldMessages(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))

	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "max":
			message = fmt.Sprintf("Value is too long (maximum %s)", fieldError.Param())
		case "gt", "gte", "lt", "lte":
			message = fmt.Sprintf("Value must be %s %s", fieldError.Tag(), fieldError.Param())
		default:
			message = "Invalid value"
		}

		fields[fieldError.Field()] = message
	}

	return fields
}

// Render ValidationErrors
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  FieldMessages(errs),
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
