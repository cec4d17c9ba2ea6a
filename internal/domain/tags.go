package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TagValue is the value side of an OSM tag filter. It either matches any
// value of the key (JSON true) or one of a list of values (a JSON string or
// an array of strings).
type TagValue struct {
	Any    bool
	Values []string
}

// AnyValue matches every feature that carries the key.
func AnyValue() TagValue { return TagValue{Any: true} }

// Values matches features whose tag equals one of vs.
func Values(vs ...string) TagValue { return TagValue{Values: vs} }

// IsZero reports whether the filter matches nothing.
func (v TagValue) IsZero() bool {
	return !v.Any && len(v.Values) == 0
}

// String renders the value for cache keys.
func (v TagValue) String() string {
	if v.Any {
		return "true"
	}
	return strings.Join(v.Values, "|")
}

// MarshalJSON implements json.Marshaler.
func (v TagValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Any:
		return []byte("true"), nil
	case len(v.Values) == 1:
		return json.Marshal(v.Values[0])
	case len(v.Values) == 0:
		return []byte("false"), nil
	default:
		return json.Marshal(v.Values)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *TagValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = TagValue{}
	switch t := raw.(type) {
	case bool:
		v.Any = t
	case string:
		v.Values = []string{t}
	case float64:
		v.Values = []string{fmt.Sprintf("%g", t)}
	case []interface{}:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("%w: tag list values must be strings", ErrInvalidFormat)
			}
			v.Values = append(v.Values, s)
		}
	case nil:
	default:
		return fmt.Errorf("%w: unsupported tag value %s", ErrInvalidFormat, string(data))
	}
	return nil
}

// Tags is an OSM tag filter: key to accepted values.
type Tags map[string]TagValue

// Keys returns the keys in sorted order.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CacheKey joins "key:value" pairs in key order with "-".
func (t Tags) CacheKey() string {
	parts := make([]string, 0, len(t))
	for _, k := range t.Keys() {
		parts = append(parts, k+":"+t[k].String())
	}
	return strings.Join(parts, "-")
}
