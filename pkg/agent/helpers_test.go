package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pachico/pachico/pkg/session"
	"github.com/pachico/pachico/pkg/tools"
)

// fakeProvider replays scripted responses and counts calls.
type fakeProvider struct {
	responses []*InvokeResponse
	invokeErr error
	requests  []InvokeRequest

	classifyLabel string
	classifyErr   error
	classifyCalls int
}

func (f *fakeProvider) Invoke(ctx context.Context, request InvokeRequest) (*InvokeResponse, error) {
	f.requests = append(f.requests, request)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	response := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return response, nil
}

func (f *fakeProvider) Classify(ctx context.Context, text string) (string, error) {
	f.classifyCalls++
	if f.classifyErr != nil {
		return "", f.classifyErr
	}
	return f.classifyLabel, nil
}

func (f *fakeProvider) Provider() string {
	return "fake"
}

func textResponse(content string) *InvokeResponse {
	return &InvokeResponse{Content: content}
}

func toolCallResponse(id, name string, args map[string]any) *InvokeResponse {
	return &InvokeResponse{
		ToolCalls: []session.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

func testRegistry() *tools.Registry {
	registry := tools.NewRegistry()

	registry.Register(tools.Definition{
		Name:        ToolSaveFoodEntry,
		Description: "save",
		Parameters: []tools.Parameter{
			{Name: "food_description", Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return `{"result":"saved","entry_id":1}`, nil
		},
	})

	registry.Register(tools.Definition{
		Name:        ToolSearchFoods,
		Description: "search",
		Parameters: []tools.Parameter{
			{Name: "query", Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "[]", nil
		},
	})

	registry.Register(tools.Definition{
		Name:        ToolFoodPortions,
		Description: "portions",
		Parameters: []tools.Parameter{
			{Name: "fdc_id", Type: "number", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return `{"fdc_id":1,"portions":[]}`, nil
		},
	})

	registry.Register(tools.Definition{
		Name:        ToolGenerateChart,
		Description: "chart",
		Parameters: []tools.Parameter{
			{Name: "metric", Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", fmt.Errorf("renderer unavailable")
		},
	})

	return registry
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
