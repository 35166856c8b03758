// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

// Package validation wraps go-playground/validator v10 for request bodies.
//
// Field errors are reported under the JSON field name, so a missing
// temperature on the insert endpoint becomes:
//
//	{"message": "Validation error", "errors": {"temperature": "temperature is required"}}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/tomtom215/biodscan/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError is one failed field.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the JSON name of the failing field.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the failing validation tag.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "100" for max=100.
func (e *ValidationError) Param() string { return e.param }

// Value returns the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every failing field of a request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual field errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(ve.errors))
	for i := range ve.errors {
		msgs = append(msgs, ve.errors[i].message)
	}
	return strings.Join(msgs, "; ")
}

// FieldErrors maps field name to message. When one field fails several
// rules the first message wins.
func (ve *RequestValidationError) FieldErrors() map[string]string {
	out := make(map[string]string, len(ve.errors))
	for i := range ve.errors {
		if _, seen := out[ve.errors[i].field]; !seen {
			out[ve.errors[i].field] = ve.errors[i].message
		}
	}
	return out
}

// APIError mirrors models.APIError for the operational endpoints.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts to the VALIDATION_FAILED error envelope.
func (ve *RequestValidationError) ToAPIError() *APIError {
	fields := ve.FieldErrors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	details := make(map[string]interface{}, len(fields))
	for name, msg := range fields {
		details[name] = msg
	}
	msg := "Validation failed"
	if len(names) > 0 {
		msg = fmt.Sprintf("Validation failed for: %s", strings.Join(names, ", "))
	}
	return &APIError{Code: "VALIDATION_FAILED", Message: msg, Details: details}
}

// GetValidator returns the shared validator. It reports JSON field names and
// knows the obs_timestamp and obs_clock tags.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		if err := validate.RegisterValidation("obs_timestamp", validateTimestamp); err != nil {
			panic(fmt.Sprintf("register obs_timestamp: %v", err))
		}
		if err := validate.RegisterValidation("obs_clock", validateClock); err != nil {
			panic(fmt.Sprintf("register obs_clock: %v", err))
		}
	})
	return validate
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateTimestamp(fl validator.FieldLevel) bool {
	_, err := models.ParseTimestamp(fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	return models.ValidClock(fl.Field().String())
}

// ValidateStruct validates s. It returns nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{errors: []ValidationError{{
			field: "body", tag: "invalid", message: err.Error(),
		}}}
	}

	out := make([]ValidationError, len(verrs))
	for i, fe := range verrs {
		out[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

// DecodeObject decodes a JSON object into the struct dst points to, one
// field at a time, so that a wrongly typed field ("temperature": "warm") is
// reported under its JSON name like any other validation failure. Nested
// objects are reported as "parent.child". Keys dst does not declare are
// ignored. It returns nil on success.
func DecodeObject(data []byte, dst interface{}) *RequestValidationError {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("validation: DecodeObject needs a struct pointer, got %T", dst))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return bodyError()
	}
	errs := decodeFields(fields, v.Elem(), "")
	if len(errs) > 0 {
		return &RequestValidationError{errors: errs}
	}
	return nil
}

func decodeFields(fields map[string]json.RawMessage, v reflect.Value, prefix string) []ValidationError {
	var errs []ValidationError
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := jsonFieldName(sf)
		if name == "" {
			continue
		}
		raw, ok := lookupField(fields, name)
		if !ok {
			continue
		}
		path := prefix + name

		if nested, ok := nestedStruct(sf.Type, raw); ok {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(raw, &inner); err != nil {
				errs = append(errs, typeError(path, sf.Type, raw))
				continue
			}
			target := v.Field(i)
			if sf.Type.Kind() == reflect.Ptr {
				target.Set(reflect.New(nested))
				target = target.Elem()
			}
			errs = append(errs, decodeFields(inner, target, path+".")...)
			continue
		}

		if err := json.Unmarshal(raw, v.Field(i).Addr().Interface()); err != nil {
			errs = append(errs, typeError(path, sf.Type, raw))
		}
	}
	return errs
}

// lookupField finds name in fields, falling back to a case-insensitive match
// as encoding/json does.
func lookupField(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := fields[name]; ok {
		return raw, true
	}
	for k, raw := range fields {
		if strings.EqualFold(k, name) {
			return raw, true
		}
	}
	return nil, false
}

// nestedStruct reports whether t is a struct (or pointer to one) that raw
// fills as a JSON object.
func nestedStruct(t reflect.Type, raw json.RawMessage) (reflect.Type, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == reflect.TypeOf(time.Time{}) {
		return nil, false
	}
	trimmed := strings.TrimSpace(string(raw))
	return t, strings.HasPrefix(trimmed, "{")
}

func typeError(field string, t reflect.Type, raw json.RawMessage) ValidationError {
	return ValidationError{
		field:   field,
		tag:     "type",
		param:   t.String(),
		value:   string(raw),
		message: fmt.Sprintf("%s must be of type %s", field, friendlyType(t)),
	}
}

func bodyError() *RequestValidationError {
	return &RequestValidationError{errors: []ValidationError{{
		field:   "body",
		tag:     "json",
		message: "request body must be a valid JSON object",
	}}}
}

// FromDecodeError turns a request decoding failure into field errors. Field
// errors from DecodeObject pass through; anything else (an unreadable or
// oversized body) is reported on "body".
func FromDecodeError(err error) *RequestValidationError {
	var verr *RequestValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return bodyError()
}

func friendlyType(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return t.Kind().String()
	}
}

var errorMessageTemplates = map[string]string{
	"required":      "%s is required",
	"obs_timestamp": "%s must be an ISO 8601 timestamp",
	"obs_clock":     "%s must be a time of day like 14:30:00",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tmpl, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
