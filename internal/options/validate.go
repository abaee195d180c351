package options

import (
	"fmt"
	"strings"
)

// Validator checks one merged options view. Implementations return one
// problem per offending property; problems from all validators are
// aggregated, not short-circuited.
type Validator interface {
	Validate(eff *Effective) []error
}

// Func adapts a plain function to the Validator interface.
type Func func(eff *Effective) []error

// Validate implements Validator.
func (f Func) Validate(eff *Effective) []error {
	return f(eff)
}

// Require returns a validator that fails when any of the named properties is
// missing, nil, or an empty string.
func Require(paths ...string) Validator {
	return Func(func(eff *Effective) []error {
		var errs []error
		for _, path := range paths {
			v, ok := eff.Value(path)
			if !ok || v == nil {
				errs = append(errs, fmt.Errorf("required property %s is not set", path))
				continue
			}
			if s, isStr := v.(string); isStr && s == "" {
				errs = append(errs, fmt.Errorf("required property %s is empty", path))
			}
		}
		return errs
	})
}

// ValidationError aggregates every validation problem found for one feature
// in one shell. It is fatal for that shell only.
type ValidationError struct {
	Shell    string
	Feature  string
	Problems []error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid configuration for feature %s in shell %s: %s",
			e.Feature, e.Shell, e.Problems[0])
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("invalid configuration for feature %s in shell %s: %d problems: %s",
		e.Feature, e.Shell, len(e.Problems), strings.Join(msgs, "; "))
}

// Validate runs every validator against the merged view and aggregates their
// problems into a single ValidationError. All validators run even when an
// earlier one reports problems.
func Validate(eff *Effective, validators ...Validator) error {
	var problems []error
	for _, v := range validators {
		if v == nil {
			continue
		}
		problems = append(problems, v.Validate(eff)...)
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{
		Shell:    eff.Shell(),
		Feature:  eff.Feature(),
		Problems: problems,
	}
}
