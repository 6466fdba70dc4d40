package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"medintake/internal/observability"
)

const defaultMaxIterations = 10

// ChatCompleter is the slice of the OpenAI client the crew needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a client for the OpenAI API or any compatible
// endpoint when baseURL is set.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// Crew runs tasks against a chat model with tool calling. Each task is a
// fresh conversation: the role's system prompt, the task prompt and the raw
// outputs of earlier tasks in the same run.
type Crew struct {
	llm           ChatCompleter
	model         string
	tools         *Toolbox
	maxIterations int
}

func NewCrew(llm ChatCompleter, model string, tools *Toolbox) *Crew {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Crew{llm: llm, model: model, tools: tools, maxIterations: defaultMaxIterations}
}

func (c *Crew) Run(ctx context.Context, tasks []Task) (*CrewOutput, error) {
	log := observability.LoggerFromContext(ctx)
	out := &CrewOutput{}
	for i, t := range tasks {
		start := time.Now()
		log.Info("task start", "index", i+1, "kind", t.Kind, "role", t.Role)

		to, err := c.runTask(ctx, t, out.Tasks)
		if err != nil {
			log.Error("task failed", "index", i+1, "kind", t.Kind, "error", err)
			return nil, fmt.Errorf("task %d (%s): %w", i+1, t.Kind, err)
		}
		log.Info("task end", "index", i+1, "kind", t.Kind,
			"tool_calls", len(to.ToolCalls), "elapsed_ms", time.Since(start).Milliseconds())
		out.Tasks = append(out.Tasks, to)
	}
	if n := len(out.Tasks); n > 0 {
		out.Raw = out.Tasks[n-1].Raw
	}
	return out, nil
}

func (c *Crew) runTask(ctx context.Context, t Task, prior []TaskOutput) (TaskOutput, error) {
	profile, err := ProfileFor(t.Role)
	if err != nil {
		return TaskOutput{}, err
	}

	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: profile.SystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: RenderPrompt(t, prior)},
	}
	tools := toOpenAITools(SpecsFor(profile))

	var calls []ToolCall
	for i := 0; i < c.maxIterations; i++ {
		resp, err := c.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    msgs,
			Tools:       tools,
			Temperature: 0.2,
		})
		if err != nil {
			return TaskOutput{}, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return TaskOutput{}, errors.New("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		msgs = append(msgs, msg)
		if len(msg.ToolCalls) == 0 {
			return TaskOutput{
				Role:        t.Role,
				Description: t.Description,
				Raw:         strings.TrimSpace(msg.Content),
				ToolCalls:   calls,
			}, nil
		}

		for _, tc := range msg.ToolCalls {
			call, nested, err := c.callTool(ctx, t, profile, tc)
			if err != nil {
				return TaskOutput{}, err
			}
			calls = append(calls, nested...)
			calls = append(calls, call)
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    call.Result,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
	}
	return TaskOutput{}, fmt.Errorf("no final answer after %d iterations", c.maxIterations)
}

// callTool executes one model tool call. Delegation runs a records sub-task
// whose own tool calls are returned as nested.
func (c *Crew) callTool(ctx context.Context, t Task, profile Profile, tc openai.ToolCall) (ToolCall, []ToolCall, error) {
	name := tc.Function.Name
	args := map[string]any{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return ToolCall{Name: name, Result: fmt.Sprintf("❌ Error: argumentos inválidos: %v", err)}, nil, nil
		}
	}
	call := ToolCall{Name: name, Arguments: args}

	switch {
	case name == ToolDelegate && profile.CanDelegate:
		sub := Task{
			Stage:          t.Stage,
			Kind:           t.Kind,
			Role:           RoleRecords,
			Description:    getString(args, "tarea"),
			ExpectedOutput: "Respuesta precisa con los datos solicitados de la base de datos.",
		}
		out, err := c.runTask(ctx, sub, nil)
		if err != nil {
			return ToolCall{}, nil, fmt.Errorf("delegated task: %w", err)
		}
		call.Result = out.Raw
		return call, out.ToolCalls, nil
	case !profile.allows(name):
		call.Result = fmt.Sprintf("❌ Error: la herramienta %s no está permitida para el rol %s", name, profile.Role)
		return call, nil, nil
	}

	result, err := c.tools.Call(ctx, name, args)
	if err != nil {
		result = fmt.Sprintf("❌ Error: %v", err)
	}
	call.Result = result
	observability.LoggerFromContext(ctx).Info("tool call", "tool", name)
	return call, nil, nil
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}

// RenderPrompt builds the user message of a task, appending the raw outputs
// of earlier tasks as context.
func RenderPrompt(t Task, prior []TaskOutput) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(t.Description))
	if t.ExpectedOutput != "" {
		b.WriteString("\n\nResultado esperado: ")
		b.WriteString(t.ExpectedOutput)
	}
	if len(prior) > 0 {
		b.WriteString("\n\nContexto de tareas anteriores:")
		for _, p := range prior {
			b.WriteString("\n---\n")
			b.WriteString(p.Raw)
		}
	}
	return b.String()
}
