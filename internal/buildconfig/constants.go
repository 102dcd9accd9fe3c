package buildconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// LiteralKey marks a mapping whose value is substituted verbatim.
const LiteralKey = "__literal__"

// Deferred is evaluated while serializing and its result is used as is.
// It is how callers inject expressions rather than data, e.g. "window".
type Deferred func() any

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

// Undefined serializes to the bare undefined keyword.
var Undefined UndefinedValue

// UnsupportedValueKindError is returned when a constant holds a value that
// has no literal form.
type UnsupportedValueKindError struct {
	// Path is the dotted name of the offending constant
	Path string
	// Type is the Go type of the offending value
	Type string
}

func (e *UnsupportedValueKindError) Error() string {
	return fmt.Sprintf("unsupported value kind %s for constant %q", e.Type, e.Path)
}

// SerializeConstants turns every leaf of vars into a literal source
// fragment so a bundler can substitute it directly.
func SerializeConstants(vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for key, value := range vars {
		v, err := serializeValue(key, value)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func serializeValue(path string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case UndefinedValue:
		return "undefined", nil
	case Deferred:
		if v == nil {
			return nil, &UnsupportedValueKindError{Path: path, Type: fmt.Sprintf("%T", value)}
		}
		return v(), nil
	case func() any:
		if v == nil {
			return nil, &UnsupportedValueKindError{Path: path, Type: fmt.Sprintf("%T", value)}
		}
		return v(), nil
	case func() string:
		if v == nil {
			return nil, &UnsupportedValueKindError{Path: path, Type: fmt.Sprintf("%T", value)}
		}
		return v(), nil
	case string, bool:
		return literal(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return literal(value)
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "null", nil
		}
		return literal(value)
	case reflect.String, reflect.Bool:
		return literal(value)
	case reflect.Slice:
		if rv.IsNil() {
			return "[]", nil
		}
		return sequenceLiteral(path, value)
	case reflect.Array:
		return sequenceLiteral(path, value)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if raw := rv.MapIndex(reflect.ValueOf(LiteralKey).Convert(rv.Type().Key())); raw.IsValid() {
			return raw.Interface(), nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			v, err := serializeValue(path+"."+key, iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case reflect.Func:
		if rv.Type().NumIn() == 0 && rv.Type().NumOut() == 1 && !rv.IsNil() {
			return rv.Call(nil)[0].Interface(), nil
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return "null", nil
		}
		return serializeValue(path, rv.Elem().Interface())
	}

	return nil, &UnsupportedValueKindError{Path: path, Type: fmt.Sprintf("%T", value)}
}

// sequenceLiteral serializes the whole sequence in one step, elements are
// not resolved individually.
func sequenceLiteral(path string, value any) (any, error) {
	s, err := literal(value)
	if err != nil {
		var typeErr *json.UnsupportedTypeError
		if errors.As(err, &typeErr) {
			return nil, &UnsupportedValueKindError{Path: path, Type: typeErr.Type.String()}
		}
		return nil, fmt.Errorf("serialize constant %q: %w", path, err)
	}
	return s, nil
}

func literal(v any) (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
