package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate checks cfg against its variant's schema.
func Validate(cfg Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	var problems []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate %s config: %w", cfg.Type(), err)
		}
		for _, fe := range verrs {
			problems = append(problems, fieldProblem(fe))
		}
	}
	problems = append(problems, crossFieldProblems(cfg)...)
	if len(problems) > 0 {
		return fmt.Errorf("invalid %s config: %s", cfg.Type(), strings.Join(problems, "; "))
	}
	return nil
}

func fieldProblem(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return ns + " is required"
	case "gt":
		return ns + " must be greater than " + fe.Param()
	case "oneof":
		return ns + " must be one of " + fe.Param()
	case "gtefield":
		return ns + " must not be before " + fe.Param()
	}
	return ns + " failed " + fe.Tag()
}

func crossFieldProblems(cfg Config) []string {
	var out []string
	if list, key, ok := ItemList(cfg); ok {
		seen := make(map[string]bool, len(*list))
		for _, o := range *list {
			if seen[o.Value] {
				out = append(out, fmt.Sprintf("%s has duplicate value %q", key, o.Value))
			}
			seen[o.Value] = true
		}
	}
	switch c := cfg.(type) {
	case *NumericConfig:
		if c.MinValue != nil && c.MaxValue != nil && *c.MaxValue < *c.MinValue {
			out = append(out, "max_value must not be less than min_value")
		}
	case *Likert5Config:
		for k := range c.ScaleLabels {
			if k < 1 || k > 5 {
				out = append(out, fmt.Sprintf("scale_labels key %d is outside 1-5", k))
			}
		}
	}
	return out
}
