// Package chat runs the conversational loop: memory window in, model with the
// command catalog as tools, dispatches on the caller's scope, answer out.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/gateway"
	"github.com/ziadkadry99/cf-pulse/internal/llm"
	"github.com/ziadkadry99/cf-pulse/internal/memory"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// DefaultMaxToolRounds bounds how many tool-calling rounds one turn may take.
const DefaultMaxToolRounds = 8

var (
	// ErrEmptyInput is returned for blank user input.
	ErrEmptyInput = errors.New("chat input is empty")
	// ErrToolRoundsExceeded is returned when the model keeps requesting tools
	// past the configured bound.
	ErrToolRoundsExceeded = errors.New("model exceeded the tool-call round limit")
)

// Dispatcher runs a catalog command on a scope.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, s scope.Scope, args catalog.Args) gateway.Result
}

// Orchestrator composes memory, the model and the dispatcher into one turn.
type Orchestrator struct {
	provider   llm.Provider
	dispatcher Dispatcher
	catalog    *catalog.Catalog
	store      memory.Store
	tools      []llm.ToolDefinition

	model       string
	maxRounds   int
	maxTokens   int
	temperature float64
	system      string
	logger      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *Orchestrator) { o.model = model }
}

// WithMaxToolRounds sets the tool-call round bound. n <= 0 keeps the default.
func WithMaxToolRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSystemPrompt replaces the built-in system instructions.
func WithSystemPrompt(p string) Option {
	return func(o *Orchestrator) { o.system = p }
}

// New creates an orchestrator that offers every command in cat as a tool.
func New(provider llm.Provider, dispatcher Dispatcher, cat *catalog.Catalog, store memory.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:    provider,
		dispatcher:  dispatcher,
		catalog:     cat,
		store:       store,
		tools:       ToolDefinitions(cat),
		maxRounds:   DefaultMaxToolRounds,
		maxTokens:   4096,
		temperature: 0.2,
		system:      systemPrompt,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the conversation memory the orchestrator appends to.
func (o *Orchestrator) Store() memory.Store { return o.store }

// ToolDefinitions exposes the catalog in the model's tool format.
func ToolDefinitions(cat *catalog.Catalog) []llm.ToolDefinition {
	cmds := cat.Commands()
	defs := make([]llm.ToolDefinition, 0, len(cmds))
	for _, c := range cmds {
		defs = append(defs, llm.ToolDefinition{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  c.RawSchema(),
		})
	}
	return defs
}

// Converse answers input within conversationID. Commands the model requests
// run on s; the model never chooses the scope. Both turns are appended to
// memory only after a final answer exists.
func (o *Orchestrator) Converse(ctx context.Context, conversationID, input string, s scope.Scope) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}
	id := memory.Identity(conversationID)

	window, err := o.store.RecentWindow(ctx, id)
	if err != nil {
		return "", fmt.Errorf("loading conversation window: %w", err)
	}

	messages := make([]llm.Message, 0, len(window)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: o.system})
	for _, t := range window {
		messages = append(messages, llm.Message{Role: llm.Role(t.Role), Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})

	dispatchCtx := gateway.WithOrigin(ctx, gateway.Origin{Source: gateway.SourceChat, ConversationID: id})
	log := o.logger.With(zap.String("conversation", id), zap.String("org", s.Org), zap.String("space", s.Space))

	var usage llm.Usage
	start := time.Now()
	for round := 0; ; round++ {
		resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
			Model:       o.model,
			Messages:    messages,
			Tools:       o.tools,
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("LLM completion: %w", err)
		}
		usage.Add(resp)

		if !resp.WantsTools() {
			answer := resp.Content
			if err := o.remember(ctx, id, input, answer); err != nil {
				return "", err
			}
			log.Info("chat turn completed",
				zap.Int("rounds", round),
				zap.Int("model_calls", usage.Calls),
				zap.Int("input_tokens", usage.InputTokens),
				zap.Int("output_tokens", usage.OutputTokens),
				zap.Float64("cost_usd", usage.Cost(resp.Model)),
				zap.Duration("elapsed", time.Since(start)),
			)
			return answer, nil
		}

		if round >= o.maxRounds {
			log.Warn("tool round limit reached", zap.Int("max_rounds", o.maxRounds))
			return "", fmt.Errorf("%w (%d)", ErrToolRoundsExceeded, o.maxRounds)
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			log.Debug("tool call", zap.Int("round", round), zap.String("command", call.Name), zap.String("arguments", call.Arguments))
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    o.invoke(dispatchCtx, call, s),
			})
		}
	}
}

// invoke runs one tool call and renders the result for the model.
func (o *Orchestrator) invoke(ctx context.Context, call llm.ToolCall, s scope.Scope) string {
	args, err := catalog.ParseArgs(call.Arguments)
	if err != nil {
		return toolError(call.Name, gateway.KindInvalidParameter, "arguments are not a JSON object: "+err.Error())
	}
	res := o.dispatcher.Dispatch(ctx, call.Name, s, args)
	b, err := json.Marshal(res)
	if err != nil {
		return toolError(call.Name, gateway.KindInternal, "encoding result: "+err.Error())
	}
	return string(b)
}

func toolError(command string, kind gateway.Kind, msg string) string {
	b, _ := json.Marshal(map[string]any{"ok": false, "command": command, "kind": kind, "error": msg})
	return string(b)
}

func (o *Orchestrator) remember(ctx context.Context, id, input, answer string) error {
	if err := o.store.Append(ctx, id, memory.Turn{Role: memory.RoleUser, Content: input}); err != nil {
		return fmt.Errorf("storing user turn: %w", err)
	}
	if err := o.store.Append(ctx, id, memory.Turn{Role: memory.RoleAssistant, Content: answer}); err != nil {
		return fmt.Errorf("storing assistant turn: %w", err)
	}
	return nil
}
