// Package tool implements the Tool Executor (spec §4.6): the single-call
// bridge between an orchestrator and the kernel. A declarative table of
// ToolDefinitions plus strict parameter validation/coercion is the only
// thing standing between a caller's free-form parameter bag and a kernel
// operation — handlers never interpret natural language and never price
// anything themselves (spec §4.6, §1).
package tool

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"poskernel/pkg/errs"
)

// ParamType is one of the three primitive types a tool parameter may
// declare (spec §4.6).
type ParamType int

const (
	String ParamType = iota
	Int
	Decimal
)

func (t ParamType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	default:
		return "unknown"
	}
}

// Parameter is one declared tool parameter (spec §4.6).
type Parameter struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
}

// Definition is a declarative tool entry: name, category tag,
// description, and its declared parameter list (spec §4.6).
type Definition struct {
	Name        string
	Category    string
	Description string
	Parameters  []Parameter
}

// RawBag is the caller-supplied parameter bag, before coercion: every
// value arrives as a string, exactly as an orchestrator's tool-call
// arguments would.
type RawBag map[string]string

// Bag is the coerced, type-normalized parameter bag a Handler receives.
// Values are string, int64, or decimal.Decimal depending on each
// parameter's declared Type.
type Bag map[string]any

func (b Bag) String(name string) string {
	v, _ := b[name].(string)
	return v
}

func (b Bag) Int(name string) int64 {
	v, _ := b[name].(int64)
	return v
}

func (b Bag) Decimal(name string) decimal.Decimal {
	v, _ := b[name].(decimal.Decimal)
	return v
}

func (b Bag) Has(name string) bool {
	_, ok := b[name]
	return ok
}

// coerce converts raw (an invariant-culture string) to the declared type.
// Any conversion error is wrapped with the offending parameter name so the
// caller (Execute) can surface "the tool+parameter and the underlying
// cause" per spec §4.6 step 2.
func coerce(param Parameter, raw string) (any, error) {
	switch param.Type {
	case String:
		return raw, nil
	case Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("parameter %q: %q is not a valid int", param.Name, raw), err)
		}
		return v, nil
	case Decimal:
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("parameter %q: %q is not a valid decimal", param.Name, raw), err)
		}
		return v, nil
	default:
		errs.ConfigurationMissingf("parameter %q: unsupported declared type", param.Name)
		return nil, nil
	}
}
