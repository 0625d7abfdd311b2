// Package api implements the REST API of the recommendation service.
// It handles HTTP routing, request decoding, validation and response formatting.
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata, so one instance is shared.
var validate = newValidator()

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Condition is one AND-ed condition of a rule, as exchanged over the API.
type Condition struct {
	// Query is the condition type, e.g. "USER_OF".
	Query string `json:"query" validate:"required"`

	// Arguments are the ordered string arguments; their count depends on Query.
	Arguments []string `json:"arguments" validate:"required"`

	// Negate inverts the condition result.
	Negate bool `json:"negate"`
}

// Rule is the recommendation rule resource.
type Rule struct {
	// ID is the server-generated identifier. Read-only.
	ID int64 `json:"id"`

	ProductName string      `json:"product_name"`
	ProductID   string      `json:"product_id"`
	ProductText string      `json:"product_text"`
	Rule        []Condition `json:"rule"`
}

// CreateRuleRequest defines the payload for POST /rule.
type CreateRuleRequest struct {
	ProductName string      `json:"product_name" validate:"required,max=255"`
	ProductID   string      `json:"product_id" validate:"required,uuid"`
	ProductText string      `json:"product_text" validate:"required"`
	Rule        []Condition `json:"rule" validate:"required,min=1,dive"`
}

// Sanitize trims whitespace from free-text fields and condition tokens.
func (r *CreateRuleRequest) Sanitize() {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.ProductID = strings.TrimSpace(r.ProductID)
	r.ProductText = strings.TrimSpace(r.ProductText)
	for i := range r.Rule {
		r.Rule[i].Query = strings.ToUpper(strings.TrimSpace(r.Rule[i].Query))
	}
}

// Validate checks the structural constraints of the payload.
// Condition arity is checked later, when the payload is mapped to the domain model.
func (r *CreateRuleRequest) Validate() *ErrorResponse {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: err.Error()}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ErrorDetail{
			Field: fieldPath(fe),
			Issue: issueFor(fe),
		})
	}

	return &ErrorResponse{
		Code:    "ERR_INVALID_INPUT",
		Message: "Request validation failed",
		Details: details,
	}
}

// fieldPath turns "CreateRuleRequest.rule[0].query" into "rule[0].query".
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func issueFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a UUID"
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

// ListResponse wraps list endpoints.
type ListResponse struct {
	Data any `json:"data"`
}

// RuleStat is one entry of GET /rule/stats.
type RuleStat struct {
	RuleID int64  `json:"rule_id"`
	Count  string `json:"count"`
}

// StatsResponse is the body of GET /rule/stats.
type StatsResponse struct {
	Stats []RuleStat `json:"stats"`
}

// Recommendation is one recommended product.
type Recommendation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// RecommendationsResponse is the body of GET /recommendation/{user_id}.
type RecommendationsResponse struct {
	UserID          string           `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
}

// InfoResponse is the body of GET /management/info.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details provides optional granular validation errors.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
