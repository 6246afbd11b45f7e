package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// EnvPrefix prefixes every environment override, e.g. MARKSEARCH_SEARCH_STRATEGY
const EnvPrefix = "MARKSEARCH_"

// ApplyMap applies a flat key→value configuration object. Keys are the yaml
// names. Values are coerced to the field type, so "32", 32 and 32.0 are all
// accepted for an int setting. Unknown keys are an error.
func (c *Config) ApplyMap(values map[string]any) error {
	fields := fieldsByKey(c)
	for key, raw := range values {
		field, ok := fields[key]
		if !ok {
			return fmt.Errorf("unknown config key %q", key)
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// ApplyEnv applies MARKSEARCH_* environment variables. List values are
// comma separated.
func (c *Config) ApplyEnv() error {
	values := make(map[string]any)
	for key := range fieldsByKey(c) {
		env := EnvPrefix + strings.ToUpper(key)
		if v, ok := os.LookupEnv(env); ok {
			values[key] = v
		}
	}
	return c.ApplyMap(values)
}

// Keys returns every flat config key
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func fieldsByKey(c *Config) map[string]reflect.Value {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	fields := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			fields[key] = v.Field(i)
		}
	}
	return fields
}

func yamlKey(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func setField(field reflect.Value, raw any) error {
	switch field.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Int:
		n, err := cast.ToIntE(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		list, err := toStringSlice(raw)
		if err != nil {
			return err
		}
		switch field.Type().Elem().Kind() {
		case reflect.String:
			field.Set(reflect.ValueOf(list))
		case reflect.Struct:
			engines, err := parseSearchEngines(list)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(engines))
		default:
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// toStringSlice accepts a list or a comma separated string
func toStringSlice(raw any) ([]string, error) {
	if s, ok := raw.(string); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, nil
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return cast.ToStringSliceE(raw)
}

// parseSearchEngines parses "Name=https://prefix?q=" entries
func parseSearchEngines(list []string) ([]SearchEngine, error) {
	engines := make([]SearchEngine, 0, len(list))
	for _, entry := range list {
		name, prefix, ok := strings.Cut(entry, "=")
		if !ok || name == "" || prefix == "" {
			return nil, fmt.Errorf("search engine %q must be Name=URLPrefix", entry)
		}
		engines = append(engines, SearchEngine{Name: strings.TrimSpace(name), URLPrefix: strings.TrimSpace(prefix)})
	}
	return engines, nil
}
