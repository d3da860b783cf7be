package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

// Table names are interpolated into SQL, so only plain or schema-qualified
// identifiers are accepted.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags and the duration fields. The first failure is
// returned as a config error naming the offending key.
func Validate(cfg *models.Config) error {
	if err := newValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := yamlPath(fe.Namespace())
			return apperrors.ConfigError(
				fmt.Sprintf("invalid value %v for %s (rule %s)", redact(field, fe.Value()), field, ruleText(fe)),
				field,
			)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "configuration validation failed")
	}

	durations := map[string]string{
		"source.timeout":      cfg.Source.Timeout,
		"destination.timeout": cfg.Destination.Timeout,
		"pipeline.timeout":    cfg.Pipeline.Timeout,
		"lock.ttl":            cfg.Lock.TTL,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return apperrors.ConfigError(fmt.Sprintf("invalid duration %q for %s", value, field), field)
		}
	}
	if cfg.Lock.Enabled {
		if d, _ := time.ParseDuration(cfg.Lock.TTL); d <= 0 {
			return apperrors.ConfigError("lock.ttl must be positive when the lock is enabled", "lock.ttl")
		}
	}
	return nil
}

// yamlPath turns "Config.source.Connection.dialect" into "source.dialect".
// Inlined structs have no yaml name and keep their Go field name.
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	var out []string
	for _, p := range parts[1:] {
		if p != "" && p != "Connection" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

func ruleText(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func redact(field string, value interface{}) interface{} {
	if strings.HasSuffix(field, "password") {
		return "***"
	}
	if s, ok := value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return value
}

// Duration parses an optional duration field. Empty yields 0.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
