// Package envstruct fills configuration structs from environment variables.
package envstruct

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var (
	ErrEnvNotSet    = errors.New("environment variable not set")
	ErrInvalidValue = errors.New("v must be a pointer to a struct")
	ErrParse        = errors.New("parse environment variable")
)

//nolint:gochecknoglobals // type identity used in the field switch.
var durationType = reflect.TypeOf(time.Duration(0))

// Populate populates the fields of the pointer to struct v with values from the environment.
//
// lookupEnv has the same signature as [os.LookupEnv]. Fields are tagged with `env:"ENV_VAR"` and
// optionally `envDefault:"value"`. A field without a default whose variable is missing yields
// ErrEnvNotSet. Supported field kinds are string, bool, int, int64, float64, and time.Duration.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptrRef := reflect.ValueOf(v)
	if ptrRef.Kind() != reflect.Ptr {
		return fmt.Errorf("%w: not pointer: %v", ErrInvalidValue, v)
	}
	ref := ptrRef.Elem()
	if ref.Kind() != reflect.Struct {
		return fmt.Errorf("%w: not struct: %v", ErrInvalidValue, v)
	}

	refType := ref.Type()
	var errorList []error

	for i := range refType.NumField() {
		field := ref.Field(i)
		structField := refType.Field(i)

		envVarName, ok := structField.Tag.Lookup("env")
		if !ok {
			continue
		}
		if !field.CanSet() {
			errorList = append(errorList, fmt.Errorf("%w: cannot set field: %s", ErrInvalidValue, structField.Name))
			continue
		}

		raw, err := envLookupWithFallback(envVarName, structField.Tag, lookupEnv)
		if err != nil {
			errorList = append(errorList, err)
			continue
		}
		if err = setField(field, raw); err != nil {
			errorList = append(errorList, fmt.Errorf("field %s (%s): %w", structField.Name, envVarName, err))
		}
	}

	return errors.Join(errorList...)
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() { //nolint:exhaustive // unsupported kinds handled by default.
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, field.Kind())
	}
	return nil
}

func envLookupWithFallback(
	envVarName string, tag reflect.StructTag, lookupEnv func(string) (string, bool)) (string, error) {
	envVarValue, ok := lookupEnv(envVarName)
	if !ok {
		envVarValue, ok = tag.Lookup("envDefault")
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrEnvNotSet, envVarName)
		}
	}
	return envVarValue, nil
}
