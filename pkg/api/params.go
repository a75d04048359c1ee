package api

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Param is a single request parameter.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered set of request parameters. Values are primitives
// (string, bool, integers, floats, fmt.Stringer) or slices and arrays of
// them. A slice repeats its key once per element and an empty one sends
// nothing. A []byte is a single string value.
type Params []Param

// Add appends a parameter and returns the extended set.
func (p Params) Add(key string, value any) Params {
	return append(p, Param{Key: key, Value: value})
}

// Encode returns the URL-encoded form of the parameters, preserving order.
func (p Params) Encode() string {
	var buf strings.Builder
	for _, param := range p {
		for _, v := range values(param.Value) {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(url.QueryEscape(param.Key))
			buf.WriteByte('=')
			buf.WriteString(url.QueryEscape(v))
		}
	}
	return buf.String()
}

func values(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{val}
	case []byte:
		return []string{string(val)}
	case []string:
		return val
	case fmt.Stringer:
		return []string{val.String()}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{format(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		out = append(out, format(rv.Index(i).Interface()))
	}
	return out
}

func format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
