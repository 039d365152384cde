package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form is a flat set of submitted field values.
type Form map[string]string

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, e.Fields[n]))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

var validate = validator.New()

// Rules maps a form field to its validator tags.
type Rules map[string]string

// optionalRules apply to every form; per-kind rules override them.
var optionalRules = Rules{
	"email":    "omitempty,email",
	"password": "omitempty,min=6",
}

var accountRules = Rules{
	"name":            "required",
	"email":           "required,email",
	"password":        "required,min=6",
	"confirmPassword": "required",
}

var formRules = map[Tab]Rules{
	TabLead:        {"name": "required", "phone": "required"},
	TabProspect:    {"name": "required", "phone": "required"},
	TabBuyer:       {"name": "required", "phone": "required"},
	TabClient:      {"name": "required", "phone": "required", "email": "required,email"},
	TabOffice:      {"name": "required", "phone": "required", "city": "required", "state": "required"},
	TabUser:        accountRules,
	TabCoordinator: accountRules,
	TabSeller:      accountRules,
}

// ValidateForm runs the field and cross-field checks for a record of kind
// tab. It returns nil or a *ValidationError.
func ValidateForm(tab Tab, form Form) error {
	rules := make(Rules, len(optionalRules)+len(formRules[tab]))
	maps.Copy(rules, optionalRules)
	maps.Copy(rules, formRules[tab])
	errs := fieldErrors(form, rules)
	pw, confirm := form["password"], form["confirmPassword"]
	if _, failed := errs["confirmPassword"]; !failed && pw != "" && confirm != "" {
		if err := validate.VarWithValue(confirm, pw, "eqfield"); err != nil {
			errs["confirmPassword"] = "does not match password"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateFields checks form against rules. Values are trimmed first.
func ValidateFields(form Form, rules Rules) error {
	if errs := fieldErrors(form, rules); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func fieldErrors(form Form, rules Rules) map[string]string {
	errs := map[string]string{}
	for _, field := range slices.Sorted(maps.Keys(rules)) {
		err := validate.Var(strings.TrimSpace(form[field]), rules[field])
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			errs[field] = fieldMessage(fes[0])
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "not a valid address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	}
	return "failed " + fe.Tag()
}

// Payload converts the form into a request body, dropping confirmation
// fields the backend does not take.
func (f Form) Payload() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if k == "confirmPassword" {
			continue
		}
		out[k] = v
	}
	return out
}
