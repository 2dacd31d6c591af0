package types

import (
	"encoding/json"
	"fmt"
)

// Op is one comparison operator from the closed filter vocabulary.
// The spelling of each constant is the wire format spoken by remote callers.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpNotIn    Op = "notIn"
	OpExists   Op = "exists"
	OpRegex    Op = "regex"
	OpContains Op = "contains"
)

// Valid reports whether op is part of the supported vocabulary
func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn, OpExists, OpRegex, OpContains:
		return true
	}
	return false
}

// Condition pairs an operator with its operand.
// For OpIn/OpNotIn the operand is a []any; for OpExists a bool.
type Condition struct {
	Op    Op  `json:"op"`
	Value any `json:"value"`
}

// Constructors for the operator vocabulary

func Eq(v any) Condition       { return Condition{Op: OpEq, Value: v} }
func Ne(v any) Condition       { return Condition{Op: OpNe, Value: v} }
func Gt(v any) Condition       { return Condition{Op: OpGt, Value: v} }
func Gte(v any) Condition      { return Condition{Op: OpGte, Value: v} }
func Lt(v any) Condition       { return Condition{Op: OpLt, Value: v} }
func Lte(v any) Condition      { return Condition{Op: OpLte, Value: v} }
func In(vs ...any) Condition   { return Condition{Op: OpIn, Value: vs} }
func NotIn(vs ...any) Condition { return Condition{Op: OpNotIn, Value: vs} }
func Exists(v bool) Condition  { return Condition{Op: OpExists, Value: v} }
func Regex(v string) Condition { return Condition{Op: OpRegex, Value: v} }
func Contains(v string) Condition { return Condition{Op: OpContains, Value: v} }

// Filter maps field names to the conditions that must all hold.
// Conditions across fields and within a field combine conjunctively.
type Filter map[string][]Condition

// UnmarshalJSON decodes the wire format: a field maps either to a literal
// (implying equality) or to an object keyed by operator names. An unknown
// operator name is an error, never a silent equality fallback.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Filter, len(raw))
	for field, msg := range raw {
		conds, err := decodeConditions(field, msg)
		if err != nil {
			return err
		}
		out[field] = conds
	}
	*f = out
	return nil
}

func decodeConditions(field string, msg json.RawMessage) ([]Condition, error) {
	// An object is an operator map unless it fails to decode as one;
	// arrays and scalars are equality literals.
	if len(msg) > 0 && msg[0] == '{' {
		var ops map[string]any
		if err := json.Unmarshal(msg, &ops); err != nil {
			return nil, fmt.Errorf("filter field %s: %w", field, err)
		}
		conds := make([]Condition, 0, len(ops))
		for name, operand := range ops {
			op := Op(name)
			if !op.Valid() {
				return nil, fmt.Errorf("%w: %q on field %s", ErrUnknownOperator, name, field)
			}
			if op == OpIn || op == OpNotIn {
				if _, isList := operand.([]any); !isList {
					return nil, fmt.Errorf("filter field %s: operator %s requires an array operand", field, op)
				}
			}
			conds = append(conds, Condition{Op: op, Value: operand})
		}
		return conds, nil
	}
	var literal any
	if err := json.Unmarshal(msg, &literal); err != nil {
		return nil, fmt.Errorf("filter field %s: %w", field, err)
	}
	return []Condition{Eq(literal)}, nil
}

// MarshalJSON emits the wire format. A single equality condition collapses
// to a literal; everything else becomes an operator object.
func (f Filter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f))
	for field, conds := range f {
		if len(conds) == 1 && conds[0].Op == OpEq {
			out[field] = conds[0].Value
			continue
		}
		ops := make(map[string]any, len(conds))
		for _, c := range conds {
			ops[string(c.Op)] = c.Value
		}
		out[field] = ops
	}
	return json.Marshal(out)
}
