// Package tools provides the registry of callable tools exposed to task
// handlers. The registry is populated at startup and read-only afterwards;
// tool failures are captured in the Result rather than raised, so the model
// can see them and recover within the same turn.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Parameter describes one tool argument.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Handler executes a tool with validated arguments and returns its output
// as a string suitable for appending to the transcript.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Definition declares a tool's contract and its handler.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// Result is the outcome of a tool execution. A failed execution is a
// Result with Success=false, never a Go error.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Registry maps tool names to definitions with compiled argument schemas.
type Registry struct {
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a tool definition and compiles its argument schema.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s is already registered", def.Name)
	}

	schemaDoc := inputSchema(def.Parameters)
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDoc))
	if err != nil {
		return fmt.Errorf("tool %s: failed to compile schema: %w", def.Name, err)
	}

	r.tools[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Debug().Str("tool", def.Name).Msg("Tool registered")

	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// InputSchema returns the JSON-schema object for a tool's arguments, in the
// shape LLM providers expect for tool declarations.
func (r *Registry) InputSchema(name string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return inputSchema(def.Parameters), true
}

// Execute runs a tool synchronously. Unknown tools, invalid arguments and
// handler errors all come back as failed Results.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	def, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return Result{Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	if args == nil {
		args = map[string]any{}
	}

	validation, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return Result{Error: fmt.Sprintf("tool %s: argument validation failed: %v", name, err)}
	}
	if !validation.Valid() {
		msgs := ""
		for _, desc := range validation.Errors() {
			if msgs != "" {
				msgs += "; "
			}
			msgs += desc.String()
		}
		return Result{Error: fmt.Sprintf("tool %s: invalid arguments: %s", name, msgs)}
	}

	output, err := def.Handler(ctx, args)
	if err != nil {
		log.Warn().Str("tool", name).Err(err).Msg("Tool execution failed")
		return Result{Error: fmt.Sprintf("tool %s failed: %v", name, err)}
	}

	return Result{Success: true, Output: output}
}

func inputSchema(params []Parameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := []string{}

	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
