package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Seconds is a whole-second countdown. It decodes from an integer, a fractional
// number (truncated toward zero), a numeric string, or null (zero).
type Seconds int64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
		if raw == "" {
			*s = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("seconds: invalid value %s", data)
	}
	*s = Seconds(math.Trunc(f))
	return nil
}

// FlexID is an identifier the bot may send as a JSON string or number.
// Numbers keep their shortest decimal form, so 42 and "42" are the same id.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = FlexID(strings.TrimSpace(str))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id: want string or number, got %s", data)
		}
		*id = FlexID(n.String())
	}
	return nil
}
