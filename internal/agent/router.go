// Package agent routes named tool calls with JSON arguments onto the active
// design. Every call returns a Result; failures are data, never errors, so
// an agent loop can read the message and retry.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/logging"
)

// Result is the structured reply to a tool call.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(msg string, data any) Result { return Result{Success: true, Message: msg, Data: data} }

func fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Target resolves the design a call acts on.
type Target func() (*design.Manager, bool)

// Observer is told about every call, for metrics.
type Observer func(tool string, success bool, elapsed time.Duration)

// Descriptor advertises a tool to the model.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type tool struct {
	desc   Descriptor
	schema *gojsonschema.Schema
	run    func(m *design.Manager, args json.RawMessage) Result
}

type Router struct {
	target   Target
	tools    map[string]*tool
	observer Observer
	log      *slog.Logger
}

// NewRouter compiles every tool schema. It panics on a malformed schema,
// which is a programming error.
func NewRouter(target Target, logger *slog.Logger) *Router {
	r := &Router{
		target: target,
		tools:  make(map[string]*tool),
		log:    logging.WithComponent(logger, "agent"),
	}
	for _, entry := range catalog {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(entry.schema))
		if err != nil {
			panic(fmt.Sprintf("compile schema for %s: %v", entry.name, err))
		}
		r.tools[entry.name] = &tool{
			desc:   Descriptor{Name: entry.name, Description: entry.description, Parameters: json.RawMessage(entry.schema)},
			schema: schema,
			run:    entry.run,
		}
	}
	return r
}

// Observe installs the call observer.
func (r *Router) Observe(o Observer) { r.observer = o }

// Tools lists the tool descriptors sorted by name.
func (r *Router) Tools() []Descriptor {
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.desc)
	}
	slices.SortFunc(out, func(a, b Descriptor) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Call runs one tool against the router's target. Empty args mean no arguments.
func (r *Router) Call(ctx context.Context, name string, args json.RawMessage) Result {
	return r.dispatch(ctx, name, args, r.target)
}

// CallOn runs one tool against a specific design.
func (r *Router) CallOn(ctx context.Context, m *design.Manager, name string, args json.RawMessage) Result {
	return r.dispatch(ctx, name, args, func() (*design.Manager, bool) { return m, m != nil })
}

func (r *Router) dispatch(ctx context.Context, name string, args json.RawMessage, target Target) Result {
	start := time.Now()
	res := r.call(ctx, name, args, target)
	if r.observer != nil {
		r.observer(name, res.Success, time.Since(start))
	}
	if !res.Success {
		r.log.Debug("tool call failed", "tool", name, "message", res.Message)
	}
	return res
}

func (r *Router) call(ctx context.Context, name string, args json.RawMessage, target Target) Result {
	t, found := r.tools[name]
	if !found {
		return fail("unknown tool %q", name)
	}
	if err := ctx.Err(); err != nil {
		return fail("%s: %v", name, err)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	res, err := t.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fail("%s: invalid arguments: %v", name, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fail("%s: invalid arguments: %s", name, strings.Join(msgs, "; "))
	}
	if target == nil {
		return fail("no active design")
	}
	m, live := target()
	if !live || m == nil || m.Closed() {
		return fail("no active design")
	}
	return t.run(m, args)
}
