// Package expansion expands ${...} placeholders in configuration values.
// Placeholders resolve through the secret provider registry, so a config
// file can say "${vault:SETTINGS_DB_PASSWORD}" or "${env:PORT}" and never
// hold the material itself.
package expansion

import (
	"os"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/ushadow/envwire/pkg/secrets"
)

// Expand recursively traverses toExpand (a pointer to a struct, slice, or
// map) and expands ${...} placeholders in every settable string field.
// References resolve through the given registry; nil means the default.
func Expand(toExpand any, registry *secrets.Registry) error {
	if toExpand == nil {
		return nil
	}
	if registry == nil {
		registry = secrets.Default()
	}

	v := reflect.ValueOf(toExpand)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return expandValue(v.Elem(), registry)
	}
	return expandValue(v, registry)
}

func expandValue(val reflect.Value, registry *secrets.Registry) error {
	switch val.Kind() {
	case reflect.String:
		if val.CanSet() {
			var expandErr error
			expanded := os.Expand(strings.TrimSpace(val.String()), func(reference string) string {
				if expandErr != nil {
					return ""
				}
				resolved, err := registry.Resolve(reference)
				if err != nil {
					expandErr = errors.Wrapf(err, "error resolving placeholder %q", reference)
					return ""
				}
				return resolved
			})
			if expandErr != nil {
				return expandErr
			}
			val.SetString(expanded)
		}

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if err := expandValue(val.Field(i), registry); err != nil {
				return err
			}
		}

	case reflect.Ptr:
		if !val.IsNil() {
			if err := expandValue(val.Elem(), registry); err != nil {
				return err
			}
		}

	case reflect.Slice:
		for i := 0; i < val.Len(); i++ {
			if err := expandValue(val.Index(i), registry); err != nil {
				return err
			}
		}

	case reflect.Map:
		for _, key := range val.MapKeys() {
			// Map values are not addressable; rebuild each one.
			fresh := reflect.New(val.MapIndex(key).Type()).Elem()
			fresh.Set(val.MapIndex(key))
			if err := expandValue(fresh, registry); err != nil {
				return err
			}
			val.SetMapIndex(key, fresh)
		}

	default:
		// Nothing to expand in other kinds.
	}
	return nil
}
