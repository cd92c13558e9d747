package datasetapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValidateParameters checks supplied values against the definitions and
// returns the coerced values plus any validation errors. Parameter names
// match case-insensitively; undeclared names are reported as errors.
// Omitted optional parameters take their declared default.
func ValidateParameters(definitions []Parameter, supplied map[string]any) (map[string]any, []ParameterError) {
	cleaned := make(map[string]any)
	var errs []ParameterError
	provided := make(map[string]struct{}, len(supplied))
	for k := range supplied {
		provided[strings.ToLower(k)] = struct{}{}
	}
	for _, param := range definitions {
		key := strings.ToLower(param.Name)
		val, ok := findParamValue(param.Name, supplied)
		if !ok {
			if param.Required {
				errs = append(errs, ParameterError{Name: param.Name, Message: "required parameter missing"})
				continue
			}
			if len(param.Default) > 0 {
				coerced, err := coerceDefaultParameter(param)
				if err != nil {
					errs = append(errs, ParameterError{Name: param.Name, Message: err.Error()})
					continue
				}
				cleaned[param.Name] = coerced
			}
			continue
		}
		delete(provided, key)
		coerced, err := coerceParameter(param, val)
		if err != nil {
			errs = append(errs, ParameterError{Name: param.Name, Message: err.Error()})
			continue
		}
		cleaned[param.Name] = coerced
	}
	for leftover := range provided {
		errs = append(errs, ParameterError{Name: leftover, Message: "parameter not declared"})
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Name < errs[j].Name })
	}
	return cleaned, errs
}

// JoinErrors flattens parameter errors into a single error, or nil.
func JoinErrors(errs []ParameterError) error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}

// CloneParameters returns a deep copy of params.
func CloneParameters(params []Parameter) []Parameter {
	if len(params) == 0 {
		return nil
	}
	cloned := make([]Parameter, len(params))
	copy(cloned, params)
	for i := range cloned {
		if len(cloned[i].Example) > 0 {
			cloned[i].Example = append(json.RawMessage(nil), cloned[i].Example...)
		}
		if len(cloned[i].Default) > 0 {
			cloned[i].Default = append(json.RawMessage(nil), cloned[i].Default...)
		}
		if len(cloned[i].Enum) > 0 {
			cloned[i].Enum = append([]string(nil), cloned[i].Enum...)
		}
		if cloned[i].Min != nil {
			cloned[i].Min = Float(*cloned[i].Min)
		}
		if cloned[i].Max != nil {
			cloned[i].Max = Float(*cloned[i].Max)
		}
	}
	return cloned
}

func coerceDefaultParameter(param Parameter) (any, error) {
	var raw any
	if err := json.Unmarshal(param.Default, &raw); err != nil {
		return nil, fmt.Errorf("parameter %s default is invalid JSON: %w", param.Name, err)
	}
	return coerceParameter(param, raw)
}

func findParamValue(name string, supplied map[string]any) (any, bool) {
	if supplied == nil {
		return nil, false
	}
	if val, ok := supplied[name]; ok {
		return val, true
	}
	lower := strings.ToLower(name)
	for k, v := range supplied {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}

func coerceParameter(param Parameter, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("parameter %s cannot be null", param.Name)
	}
	switch param.Type {
	case TypeString:
		v, ok := singleString(raw)
		if !ok {
			return nil, fmt.Errorf("parameter %s expects string", param.Name)
		}
		if len(param.Enum) > 0 && !containsString(param.Enum, v) {
			return nil, enumError(param.Enum)
		}
		return v, nil
	case TypeStringList:
		list, ok := stringList(raw)
		if !ok {
			return nil, fmt.Errorf("parameter %s expects a list of strings", param.Name)
		}
		for _, v := range list {
			if len(param.Enum) > 0 && !containsString(param.Enum, v) {
				return nil, enumError(param.Enum)
			}
		}
		return list, nil
	case TypeInteger:
		v, err := integerValue(param.Name, raw)
		if err != nil {
			return nil, err
		}
		if err := checkRange(param, float64(v)); err != nil {
			return nil, err
		}
		return v, nil
	case TypeNumber:
		v, err := numberValue(param.Name, raw)
		if err != nil {
			return nil, err
		}
		if err := checkRange(param, v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string, []string:
			s, _ := singleString(v)
			parsed, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects boolean", param.Name)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("parameter %s expects boolean", param.Name)
		}
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", param.Type)
	}
}

// singleString unwraps a string or a one-element list such as a form value.
func singleString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), true
	case fmt.Stringer:
		return strings.TrimSpace(v.String()), true
	case []string:
		if len(v) != 1 {
			return "", false
		}
		return strings.TrimSpace(v[0]), true
	default:
		return "", false
	}
}

// stringList accepts a list or a single comma-separated string. Blank
// entries are dropped so a form can submit an explicitly empty list.
func stringList(raw any) ([]string, bool) {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			items = append(items, s)
		}
	default:
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

func integerValue(name string, raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("parameter %s expects integer", name)
		}
		return int(v), nil
	case string, []string:
		s, ok := singleString(v)
		if !ok {
			return 0, fmt.Errorf("parameter %s expects integer", name)
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("parameter %s expects integer", name)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("parameter %s expects integer", name)
	}
}

func numberValue(name string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string, []string:
		s, ok := singleString(v)
		if !ok {
			return 0, fmt.Errorf("parameter %s expects number", name)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(parsed) {
			return 0, fmt.Errorf("parameter %s expects number", name)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("parameter %s expects number", name)
	}
}

func checkRange(param Parameter, v float64) error {
	if param.Min != nil && v < *param.Min {
		return rangeError(param)
	}
	if param.Max != nil && v > *param.Max {
		return rangeError(param)
	}
	return nil
}

func rangeError(param Parameter) error {
	switch {
	case param.Min != nil && param.Max != nil:
		return fmt.Errorf("value must be between %g and %g", *param.Min, *param.Max)
	case param.Min != nil:
		return fmt.Errorf("value must be at least %g", *param.Min)
	default:
		return fmt.Errorf("value must be at most %g", *param.Max)
	}
}

func containsString(list []string, target string) bool {
	for _, candidate := range list {
		if candidate == target {
			return true
		}
	}
	return false
}

func enumError(options []string) error {
	if len(options) == 0 {
		return errors.New("invalid enumeration")
	}
	return fmt.Errorf("value must be one of: %s", strings.Join(options, ", "))
}
