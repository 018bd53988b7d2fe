package calc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Operands is an operand list that decodes from a JSON number array, an
// array of numeric strings, or one comma separated string such as "2, 3, 4".
type Operands []float64

// ParseOperands splits a comma separated list into numbers.
func ParseOperands(s string) (Operands, error) {
	out := Operands{} // Non-nil so an empty list still counts as given
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		x, err := parseOperand(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func parseOperand(tok string) (float64, error) {
	x, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, newError(KindInvalidOperand, "operand %q is not a number", tok)
	}
	if !finite(x) {
		return 0, newError(KindInvalidOperand, "operand %q is not a finite number", tok)
	}
	return x, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operands) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseOperands(s)
		if err != nil {
			return err
		}
		*o = parsed
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return newError(KindInvalidOperand, "inputs must be a list of numbers")
	}
	out := make(Operands, 0, len(raw))
	for _, item := range raw {
		var x float64
		if err := json.Unmarshal(item, &x); err == nil {
			out = append(out, x)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return newError(KindInvalidOperand, "operand %s is not a number", string(item))
		}
		x, err := parseOperand(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		out = append(out, x)
	}
	*o = out
	return nil
}

func finite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}
