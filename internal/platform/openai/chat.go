package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/httpx"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model        string
	SystemPrompt string
	Messages     []ChatMessage
	Temperature  *float64
	MaxTokens    int
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// StreamEvent is one item of a streaming completion. Exactly one of Delta,
// Usage, Err is meaningful unless Done is set.
type StreamEvent struct {
	Delta string
	Usage *Usage
	Err   error
	Done  bool
}

type usagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []ChatMessage  `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_completion_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *usagePayload `json:"usage"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *usagePayload `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *client) buildChatBody(req ChatRequest, stream bool) chatCompletionRequest {
	msgs := make([]ChatMessage, 0, len(req.Messages)+1)
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: sys})
	}
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	body := chatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if req.Temperature != nil && !c.modelIsNoTemp(req.Model) {
		t := *req.Temperature
		body.Temperature = &t
	}
	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return body
}

func (c *client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := c.buildChatBody(req, false)
	var resp chatCompletionResponse
	err := c.do(ctx, "POST", "/v1/chat/completions", body.Model, body, &resp)
	if err != nil && body.Temperature != nil && isUnsupportedTemperature(err) {
		c.noteNoTempModel(body.Model)
		body.Temperature = nil
		err = c.do(ctx, "POST", "/v1/chat/completions", body.Model, body, &resp)
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: empty choices")
	}
	if r := strings.TrimSpace(resp.Choices[0].Message.Refusal); r != "" {
		return nil, fmt.Errorf("model refused: %s", r)
	}
	out := &ChatResponse{Content: resp.Choices[0].Message.Content, Model: resp.Model}
	if out.Model == "" {
		out.Model = req.Model
	}
	if resp.Usage != nil {
		out.Usage = Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	return out, nil
}

// openStream establishes the SSE response, retrying transient failures
// before any token has been produced.
func (c *client) openStream(ctx context.Context, body chatCompletionRequest) (*http.Response, error) {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		req, err := c.newRequest(ctx, "POST", "/v1/chat/completions", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/event-stream")
		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			raw, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			err = &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		}
		if body.Temperature != nil && isUnsupportedTemperature(err) {
			c.noteNoTempModel(body.Model)
			body.Temperature = nil
			continue
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI stream retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if sErr := httpx.Sleep(ctx, sleepFor); sErr != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (c *client) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error) {
	body := c.buildChatBody(req, true)
	start := time.Now()
	resp, err := c.openStream(ctx, body)
	if err != nil {
		observability.Current().ObserveLLMRequest(body.Model, "/v1/chat/completions:stream", statusFromRespErr(nil, err), time.Since(start), 0, 0)
		return nil, err
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		emit := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var usage *Usage
		outChars := 0
		err := streamSSE(resp.Body, func(_ string, data string) error {
			data = strings.TrimSpace(data)
			if data == "" {
				return nil
			}
			if data == "[DONE]" {
				return errStreamDone
			}
			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return nil
			}
			if chunk.Error != nil {
				return fmt.Errorf("openai stream error: %s", chunk.Error.Message)
			}
			if chunk.Usage != nil {
				usage = &Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
			}
			for _, ch := range chunk.Choices {
				if r := strings.TrimSpace(ch.Delta.Refusal); r != "" {
					return fmt.Errorf("model refused: %s", r)
				}
				if ch.Delta.Content == "" {
					continue
				}
				outChars += len(ch.Delta.Content)
				if !emit(StreamEvent{Delta: ch.Delta.Content}) {
					return ctx.Err()
				}
			}
			return nil
		})
		if err == errStreamDone {
			err = nil
		}
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}

		in, out := 0, outChars/4
		if usage != nil {
			in, out = usage.InputTokens, usage.OutputTokens
		}
		status := statusFromResp(resp)
		if err != nil {
			status = "stream_error"
		}
		observability.Current().ObserveLLMRequest(body.Model, "/v1/chat/completions:stream", status, time.Since(start), in, out)

		if err != nil {
			emit(StreamEvent{Err: err})
			return
		}
		if usage != nil {
			emit(StreamEvent{Usage: usage})
		}
		emit(StreamEvent{Done: true})
	}()
	return events, nil
}
