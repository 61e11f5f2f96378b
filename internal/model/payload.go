package model

import "fmt"

// Payload is the arbitrary JSON payload attached to a task job. Fields are
// validated on read: every access goes through a typed accessor that returns a
// named error instead of silently yielding a zero value.
type Payload map[string]interface{}

// String returns the named field as a non-empty string.
func (p Payload) String(key string) (string, error) {
	raw, ok := p[key]
	if !ok {
		return "", fmt.Errorf("payload field %q is missing", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("payload field %q is not a string", key)
	}
	if s == "" {
		return "", fmt.Errorf("payload field %q is empty", key)
	}
	return s, nil
}

// OptionalString returns the named field as a string, or "" when absent.
// A present field of the wrong type is still an error.
func (p Payload) OptionalString(key string) (string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("payload field %q is not a string", key)
	}
	return s, nil
}

// Int returns the named field as an int. JSON numbers decode as float64,
// so both forms are accepted as long as the value is integral.
func (p Payload) Int(key string) (int, error) {
	raw, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("payload field %q is missing", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		n := int(v)
		if float64(n) != v {
			return 0, fmt.Errorf("payload field %q is not an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("payload field %q is not a number", key)
	}
}
