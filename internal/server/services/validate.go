package services

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/auth"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CampgroundInput is the submitted campground form. A nil Price means the
// field was left blank.
type CampgroundInput struct {
	Title       string   `json:"title" validate:"required"`
	Location    string   `json:"location" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
}

type ReviewInput struct {
	Body   string `json:"body" validate:"required"`
	Rating *int   `json:"rating" validate:"required,min=1,max=5"`
}

type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"password"`
}

// Upload is one submitted file.
type Upload struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

var inputValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("password", fmt.Sprintf("required,min=%d", auth.MinPasswordLength))
	return v
}

// ParsePrice reads a submitted price. Blank text yields nil so that the
// missing value is reported by validation.
func ParsePrice(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, common.NewValidationError(`"price" must be a number`)
	}
	return &v, nil
}

// ParseRating reads a submitted star rating. Blank text yields nil.
func ParseRating(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, common.NewValidationError(`"rating" must be a number`)
	}
	return &v, nil
}

// check runs the struct rules of in and reports every failed rule as one
// problem of a single validation error.
func check(in any) error {
	err := inputValidator.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("error validating input: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, problem(fe))
	}
	return common.NewValidationError(problems...)
}

func problem(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "gte":
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

func (in CampgroundInput) validate() (CampgroundInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	return in, check(in)
}

func (in ReviewInput) validate() (ReviewInput, error) {
	in.Body = strings.TrimSpace(in.Body)
	return in, check(in)
}

func (in RegisterInput) validate() (RegisterInput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	return in, check(in)
}

// validID maps ids that cannot exist to a not-found condition before they
// reach the store.
func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}
	return nil
}
