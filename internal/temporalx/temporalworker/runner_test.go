package temporalworker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/ingest"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/temporalx"
)

type nopProcessor struct{}

func (nopProcessor) Process(_ context.Context, id uuid.UUID) (ingest.Result, error) {
	return ingest.Result{DocumentID: id}, nil
}
func (nopProcessor) Fail(context.Context, uuid.UUID, error) {}

func TestNewRunnerRequiresDeps(t *testing.T) {
	if _, err := NewRunner(logger.Nop(), nil, temporalx.Config{}, nopProcessor{}); err == nil {
		t.Fatalf("expected error without temporal client")
	}
}

func TestRegisterNamespaceLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := &Runner{
		log: &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
		cfg: temporalx.Config{Namespace: "assistant", AutoRegisterNamespace: true},
		ensureNamespace: func(context.Context, *logger.Logger, temporalx.Config) error {
			return errors.New("permission denied")
		},
	}

	r.registerNamespace(context.Background(), 3)

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(entries) != 1 {
		t.Fatalf("warn entries: want=1 got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["error"] != "permission denied" {
		t.Fatalf("error field: want=%q got=%v", "permission denied", fields["error"])
	}
	if fields["namespace"] != "assistant" {
		t.Fatalf("namespace field: want=assistant got=%v", fields["namespace"])
	}

	r.ensureNamespace = func(context.Context, *logger.Logger, temporalx.Config) error { return nil }
	r.registerNamespace(context.Background(), 4)
	if got := logs.FilterLevelExact(zapcore.WarnLevel).Len(); got != 1 {
		t.Fatalf("warn entries after success: want=1 got=%d", got)
	}
}
