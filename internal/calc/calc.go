// Package calc evaluates calculations: a left fold of one arithmetic
// operation over an ordered list of operands.
package calc

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Type names a supported operation as stored in the database.
type Type string

const (
	Addition       Type = "addition"
	Subtraction    Type = "subtraction"
	Multiplication Type = "multiplication"
	Division       Type = "division"
	Modulus        Type = "modulus"
)

// MinOperands is the smallest operand list any operation accepts.
const MinOperands = 2

type operation struct {
	apply       func(acc, x float64) float64
	zeroDivisor bool // rejects 0 anywhere after the first operand
}

var operations = map[Type]operation{
	Addition:       {apply: func(a, b float64) float64 { return a + b }},
	Subtraction:    {apply: func(a, b float64) float64 { return a - b }},
	Multiplication: {apply: func(a, b float64) float64 { return a * b }},
	Division:       {apply: func(a, b float64) float64 { return a / b }, zeroDivisor: true},
	Modulus:        {apply: floorMod, zeroDivisor: true},
}

var aliases = map[string]Type{
	"add":      Addition,
	"sub":      Subtraction,
	"subtract": Subtraction,
	"mul":      Multiplication,
	"multiply": Multiplication,
	"div":      Division,
	"divide":   Division,
	"mod":      Modulus,
}

// Types lists the canonical operation names in sorted order.
func Types() []Type {
	out := make([]Type, 0, len(operations))
	for t := range operations {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseType normalizes a user supplied operation name. Matching is case
// insensitive and accepts the short aliases (add, sub, mul, div, mod).
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if _, ok := operations[Type(name)]; ok {
		return Type(name), nil
	}
	if t, ok := aliases[name]; ok {
		return t, nil
	}
	return "", newError(KindUnsupportedType, "unsupported calculation type: %q", s)
}

// Validate checks operands against the rules of t without evaluating.
func Validate(t Type, inputs []float64) error {
	op, ok := operations[t]
	if !ok {
		return newError(KindUnsupportedType, "unsupported calculation type: %q", string(t))
	}
	if len(inputs) < MinOperands {
		return newError(KindTooFewOperands, "%s requires at least %d operands", t, MinOperands)
	}
	for _, x := range inputs {
		if !finite(x) {
			return newError(KindInvalidOperand, "operand %v is not a finite number", x)
		}
	}
	if op.zeroDivisor {
		for _, x := range inputs[1:] {
			if x == 0 {
				return newError(KindZeroDivisor, "zero divisor not supported in %s", t)
			}
		}
	}
	return nil
}

// Evaluate folds the operation over inputs from left to right.
func Evaluate(t Type, inputs []float64) (float64, error) {
	if err := Validate(t, inputs); err != nil {
		return 0, err
	}
	apply := operations[t].apply
	acc := inputs[0]
	for _, x := range inputs[1:] {
		acc = apply(acc, x)
	}
	if math.IsInf(acc, 0) || math.IsNaN(acc) {
		return 0, newError(KindOutOfRange, "%s result is out of range", t)
	}
	return acc, nil
}

// floorMod returns a mod b with the sign of b.
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// String renders the calculation as an infix expression, e.g. "2 + 3 + 4".
func String(t Type, inputs []float64) string {
	sym := map[Type]string{
		Addition:       "+",
		Subtraction:    "-",
		Multiplication: "*",
		Division:       "/",
		Modulus:        "%",
	}[t]
	parts := make([]string, len(inputs))
	for i, x := range inputs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " "+sym+" ")
}
