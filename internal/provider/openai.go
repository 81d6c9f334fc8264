package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/tandemlabs/tandem/internal/config"
	"github.com/tandemlabs/tandem/internal/message"
	"github.com/tandemlabs/tandem/internal/tools"
)

const maxRetries = 3

type openaiClient struct {
	cfg    config.Provider
	client openai.Client
}

// NewOpenAI returns a [Client] backed by an OpenAI-compatible
// chat-completions endpoint.
func NewOpenAI(cfg config.Provider) Client {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiClient{
		cfg:    cfg,
		client: openai.NewClient(opts...),
	}
}

func (o *openaiClient) convertMessages(messages []message.Message) (out []openai.ChatCompletionMessageParamUnion) {
	for _, msg := range messages {
		switch msg.Role {
		case message.System:
			out = append(out, openai.SystemMessage(msg.Content().String()))

		case message.User:
			out = append(out, openai.UserMessage(msg.Content().String()))

		case message.Assistant:
			assistantMsg := openai.ChatCompletionAssistantMessageParam{
				Role: "assistant",
			}
			if calls := msg.ToolCalls(); len(calls) > 0 {
				assistantMsg.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(calls))
				for i, call := range calls {
					assistantMsg.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   call.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      call.Name,
							Arguments: call.Input,
						},
					}
				}
			}
			if text := msg.Content().String(); text != "" {
				assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(text),
				}
			}
			// Skip empty assistant messages (no content, no tool calls).
			if msg.Content().String() == "" && len(assistantMsg.ToolCalls) == 0 {
				continue
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &assistantMsg,
			})

		case message.Tool:
			for _, result := range msg.ToolResults() {
				out = append(out, openai.ToolMessage(result.Content, result.ToolCallID))
			}
		}
	}
	return out
}

func (o *openaiClient) convertTools(defs []tools.BaseTool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(defs))
	for i, tool := range defs {
		info := tool.Info()
		out[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        info.Name,
				Description: openai.String(info.Description),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": info.Parameters,
					"required":   info.Required,
				},
			},
		}
	}
	return out
}

func (o *openaiClient) finishReason(reason string) FinishReason {
	switch reason {
	case "stop", "":
		return FinishReasonEndTurn
	case "length":
		return FinishReasonMaxTokens
	case "tool_calls":
		return FinishReasonToolUse
	default:
		return FinishReasonUnknown
	}
}

func (o *openaiClient) Stream(ctx context.Context, messages []message.Message, defs []tools.BaseTool) <-chan Event {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.cfg.Model),
		Messages: o.convertMessages(messages),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if len(defs) > 0 {
		params.Tools = o.convertTools(defs)
	}
	if o.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(o.cfg.MaxTokens)
	}

	events := make(chan Event)
	go func() {
		defer close(events)

		// The consumer may abandon the channel mid-stream (client
		// disconnects); every send has to bail out on cancellation or the
		// goroutine leaks.
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		attempts := 0
		for {
			attempts++
			stream := o.client.Chat.Completions.NewStreaming(ctx, params)

			acc := openai.ChatCompletionAccumulator{}
			currentContent := ""
			calls := make(map[int64]message.ToolCall)

			for stream.Next() {
				chunk := stream.Current()
				acc.AddChunk(chunk)
				if len(chunk.Choices) == 0 {
					continue
				}
				delta := chunk.Choices[0].Delta
				if delta.Content != "" {
					currentContent += delta.Content
					if !send(Event{Type: EventContentDelta, Content: delta.Content}) {
						stream.Close()
						return
					}
				}
				for _, tc := range delta.ToolCalls {
					// Fragments for one call share an index; arguments
					// accumulate, name/id arrive on the first fragment.
					existing, ok := calls[tc.Index]
					if !ok {
						id := tc.ID
						if id == "" {
							id = uuid.NewString()
						}
						calls[tc.Index] = message.ToolCall{
							ID:    id,
							Name:  tc.Function.Name,
							Input: tc.Function.Arguments,
						}
						continue
					}
					existing.Input += tc.Function.Arguments
					if existing.Name == "" {
						existing.Name = tc.Function.Name
					}
					calls[tc.Index] = existing
				}
			}

			err := stream.Err()
			if err == nil || errors.Is(err, io.EOF) {
				if len(acc.Choices) == 0 {
					send(Event{
						Type:  EventError,
						Error: fmt.Errorf("received empty streaming response - check endpoint configuration"),
					})
					return
				}

				indices := make([]int64, 0, len(calls))
				for i := range calls {
					indices = append(indices, i)
				}
				slices.Sort(indices)
				var toolCalls []message.ToolCall
				for _, i := range indices {
					if call := calls[i]; call.Name != "" {
						toolCalls = append(toolCalls, call)
					}
				}

				finishReason := o.finishReason(string(acc.Choices[0].FinishReason))
				if len(toolCalls) > 0 {
					finishReason = FinishReasonToolUse
				}

				send(Event{
					Type: EventComplete,
					Response: &Response{
						Content:      currentContent,
						ToolCalls:    toolCalls,
						Usage:        o.usage(acc.ChatCompletion),
						FinishReason: finishReason,
					},
				})
				return
			}

			retry, after := o.shouldRetry(attempts, err)
			if !retry {
				send(Event{Type: EventError, Error: err})
				return
			}
			slog.Warn("retrying model call", "attempt", attempts, "max_retries", maxRetries, "error", err)
			select {
			case <-ctx.Done():
				send(Event{Type: EventError, Error: ctx.Err()})
				return
			case <-time.After(after):
			}
		}
	}()
	return events
}

func (o *openaiClient) shouldRetry(attempts int, err error) (bool, time.Duration) {
	if attempts > maxRetries {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode != http.StatusTooManyRequests &&
			apiErr.StatusCode != http.StatusInternalServerError {
			return false, 0
		}
	}
	backoff := time.Duration(1<<(attempts-1)) * 2 * time.Second
	return true, backoff
}

func (o *openaiClient) usage(completion openai.ChatCompletion) TokenUsage {
	u := completion.Usage
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		CachedTokens: u.PromptTokensDetails.CachedTokens,
		TotalTokens:  total,
	}
}
