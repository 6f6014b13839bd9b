package tool

import (
	"fmt"

	"poskernel/pkg/errs"
)

// Handler is the only place that bridges orchestrator intent to kernel
// operations (spec §4.6). It receives an already-validated, type-coerced
// Bag and must delegate every price to the catalog and every total to the
// Transaction Engine — it performs no pricing or currency arithmetic of
// its own.
type Handler func(bag Bag) (any, error)

// Executor is the Tool Executor contract (spec §4.6).
type Executor interface {
	Register(def Definition, handler Handler) error
	Execute(name string, raw RawBag) (any, error)
	Definitions() []Definition
}

// NewExecutor constructs an empty tool table.
func NewExecutor() Executor {
	return &executor{entries: make(map[string]entry)}
}

type entry struct {
	def     Definition
	handler Handler
}

type executor struct {
	entries map[string]entry
}

// Register adds def+handler to the table. Registering the same tool name
// twice is a construction-time defect (ConfigurationMissing-adjacent) and
// fails loudly rather than silently overwriting an existing entry.
func (e *executor) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return errs.New(errs.ConfigurationMissing, "tool: definition name must not be blank")
	}
	if handler == nil {
		return errs.New(errs.ConfigurationMissing, fmt.Sprintf("tool %q: handler must not be nil", def.Name))
	}
	if _, exists := e.entries[def.Name]; exists {
		return errs.New(errs.ConfigurationMissing, fmt.Sprintf("tool %q: already registered", def.Name))
	}
	e.entries[def.Name] = entry{def: def, handler: handler}
	return nil
}

func (e *executor) Definitions() []Definition {
	defs := make([]Definition, 0, len(e.entries))
	for _, entry := range e.entries {
		defs = append(defs, entry.def)
	}
	return defs
}

// Execute runs the §4.6 validation algorithm before ever calling the
// handler: unknown tool name, missing required parameter, uncoercible
// value, or an undeclared bag key are all caught here, in that order,
// so the orchestrator/kernel boundary never drifts silently.
func (e *executor) Execute(name string, raw RawBag) (any, error) {
	entry, ok := e.entries[name]
	if !ok {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("tool %q: not found", name))
	}

	declared := make(map[string]Parameter, len(entry.def.Parameters))
	for _, param := range entry.def.Parameters {
		declared[param.Name] = param
	}

	for key := range raw {
		if _, known := declared[key]; !known {
			return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("tool %q: unknown parameter %q", name, key))
		}
	}

	bag := make(Bag, len(entry.def.Parameters))
	for _, param := range entry.def.Parameters {
		rawValue, present := raw[param.Name]
		if !present {
			if param.Required {
				return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("tool %q: missing required parameter %q", name, param.Name))
			}
			continue
		}
		coerced, err := coerce(param, rawValue)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("tool %q", name), err)
		}
		bag[param.Name] = coerced
	}

	for key := range raw {
		if _, known := declared[key]; !known {
			return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("tool %q: unknown parameter %q", name, key))
		}
	}

	return entry.handler(bag)
}
