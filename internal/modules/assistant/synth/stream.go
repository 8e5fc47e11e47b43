package synth

import (
	"context"
	"strings"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/platform/openai"
)

const tokenBuffer = 16

// Stream is a single-consumer view of an answer being generated. A producer
// goroutine forwards every token to Tokens and accumulates the full text; Wait
// returns the final response once the generation has ended.
type Stream struct {
	tokens chan string
	done   chan struct{}
	cancel context.CancelFunc

	resp *domain.AssistantResponse
	err  error
}

// Tokens yields tokens as they arrive and is closed when generation ends.
func (s *Stream) Tokens() <-chan string { return s.tokens }

// Wait blocks until the producer has finished. The consumer must keep reading
// Tokens (or call Close) or the producer will stall.
func (s *Stream) Wait() (*domain.AssistantResponse, error) {
	<-s.done
	return s.resp, s.err
}

// Close abandons the stream and aborts the underlying generation request.
func (s *Stream) Close() {
	s.cancel()
}

// Collect drains the stream and returns the final response.
func Collect(s *Stream) (*domain.AssistantResponse, error) {
	for range s.tokens {
	}
	return s.Wait()
}

type finishFunc func(content string, usage openai.Usage) *domain.AssistantResponse

func startStream(ctx context.Context, cancel context.CancelFunc, events <-chan openai.StreamEvent, finish finishFunc, onEnd func(error)) *Stream {
	s := &Stream{
		tokens: make(chan string, tokenBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(s.done)
		defer cancel()
		defer close(s.tokens)

		var (
			b     strings.Builder
			usage openai.Usage
			err   error
		)
	loop:
		for {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break loop
			case ev, ok := <-events:
				if !ok {
					break loop
				}
				switch {
				case ev.Err != nil:
					err = domain.GenerationServiceError("chat_stream", ev.Err)
					break loop
				case ev.Usage != nil:
					usage = *ev.Usage
				case ev.Done:
				case ev.Delta != "":
					b.WriteString(ev.Delta)
					select {
					case s.tokens <- ev.Delta:
					case <-ctx.Done():
						err = ctx.Err()
						break loop
					}
				}
			}
		}
		if err != nil {
			// the generator stops emitting once ctx is cancelled
			cancel()
			for range events {
			}
		}
		if err == nil {
			s.resp = finish(b.String(), usage)
		}
		s.err = err
		if onEnd != nil {
			onEnd(err)
		}
	}()
	return s
}

// staticStream serves a precomputed response without calling the generator.
func staticStream(resp *domain.AssistantResponse) *Stream {
	s := &Stream{
		tokens: make(chan string, 1),
		done:   make(chan struct{}),
		cancel: func() {},
		resp:   resp,
	}
	s.tokens <- resp.Content
	close(s.tokens)
	close(s.done)
	return s
}
