package collection

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrLocationRequired is returned before anything else when no fix was captured.
var ErrLocationRequired = errors.New("location is required: capture your current location before submitting")

// ValidationError lists every field that failed, keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid collection: " + strings.Join(parts, "; ")
}

// input is the part of the form validated before any service is called.
type input struct {
	Species        string  `json:"species"        validate:"required"`
	Weight         float64 `json:"weight"         validate:"gt=0"`
	PricePerUnit   float64 `json:"pricePerUnit"   validate:"gte=0"`
	HarvestDate    string  `json:"harvestDate"    validate:"required,notfuture"`
	Zone           string  `json:"zone"           validate:"required,approvedzone"`
	QualityGrade   string  `json:"qualityGrade"   validate:"required"`
	CollectorGroup string  `json:"collectorGroup" validate:"required"`
}

var messages = map[string]string{
	"required":     "is required",
	"gt":           "must be greater than 0",
	"gte":          "must not be negative",
	"notfuture":    "must be a date (YYYY-MM-DD) no later than today",
	"approvedzone": "is not an approved harvesting zone",
}

func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		today, _ := time.Parse(dateLayout, now().Format(dateLayout))
		return !d.After(today)
	})
	_ = v.RegisterValidation("approvedzone", func(fl validator.FieldLevel) bool {
		return ZoneApproved(fl.Field().String())
	})
	return v
}

func validate(v *validator.Validate, s State) error {
	in := input{
		Species:        strings.TrimSpace(s.Species),
		Weight:         s.Weight,
		PricePerUnit:   s.PricePerUnit,
		HarvestDate:    s.HarvestDate,
		Zone:           s.Zone,
		QualityGrade:   strings.TrimSpace(s.QualityGrade),
		CollectorGroup: strings.TrimSpace(s.CollectorGroup),
	}
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate collection: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}
