// Package validate checks a run configuration before it is sent to the
// backend and reports problems per field.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

const dateLayout = "2006-01-02"

// BacktestConfig is the subset of the run configuration the dashboard
// understands. Keys it does not know are passed through to the backend
// untouched.
type BacktestConfig struct {
	Symbol         string  `mapstructure:"symbol"          validate:"required,min=3,max=20,alphanum,uppercase"`
	Timeframe      string  `mapstructure:"timeframe"       validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d"`
	StartDate      string  `mapstructure:"start_date"      validate:"omitempty,datetime=2006-01-02"`
	EndDate        string  `mapstructure:"end_date"        validate:"omitempty,datetime=2006-01-02"`
	InitialCapital float64 `mapstructure:"initial_capital" validate:"omitempty,gt=0"`
	RiskPerTrade   float64 `mapstructure:"risk_per_trade"  validate:"omitempty,gt=0,lte=0.1"`
	Leverage       float64 `mapstructure:"leverage"        validate:"omitempty,gte=1,lte=125"`
	MaxDrawdown    float64 `mapstructure:"max_drawdown"    validate:"omitempty,gt=0,lt=1"`
}

// FieldErrors maps a configuration key to a human readable problem.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for key := range fe {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+fe[key])
	}
	return strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(dateRangeValidation, BacktestConfig{})
	return v
}

func dateRangeValidation(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(BacktestConfig)
	if cfg.StartDate == "" || cfg.EndDate == "" {
		return
	}
	start, err := time.Parse(dateLayout, cfg.StartDate)
	if err != nil {
		return
	}
	end, err := time.Parse(dateLayout, cfg.EndDate)
	if err != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(cfg.EndDate, "end_date", "EndDate", "after_start", "")
	}
}

// Decode reads the known keys of a raw configuration object.
func Decode(raw map[string]any) (BacktestConfig, error) {
	var cfg BacktestConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Config returns the problems found in raw, or nil when it can be submitted.
func Config(raw map[string]any) FieldErrors {
	if raw == nil {
		return FieldErrors{"config": "is required"}
	}

	errs := FieldErrors{}
	// Decode field by field so one malformed value does not hide the others.
	var cfg BacktestConfig
	rt := reflect.TypeOf(cfg)
	rv := reflect.ValueOf(&cfg).Elem()
	for i := 0; i < rt.NumField(); i++ {
		key := strings.SplitN(rt.Field(i).Tag.Get("mapstructure"), ",", 2)[0]
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           rv.Field(i).Addr().Interface(),
		})
		if err != nil {
			errs[key] = err.Error()
			continue
		}
		if err := decoder.Decode(value); err != nil {
			errs[key] = fmt.Sprintf("has an invalid value %v", value)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["config"] = err.Error()
			return errs
		}
		for _, fe := range verrs {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = message(fe)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date like 2024-01-31"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "alphanum":
		return "must contain only letters and digits"
	case "uppercase":
		return "must be uppercase"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "after_start":
		return "must be after start_date"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
