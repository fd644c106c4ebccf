package logger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	fcontext "github.com/fissio/fissio/pkg/context"
	"github.com/fissio/fissio/pkg/logger"
)

func TestCreateLogger(t *testing.T) {
	log := logger.CreateLogger("", "info")
	if log == nil {
		t.Fatal("expected logger to be created")
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("warn", &buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message missing")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error message missing")
	}
}

func TestLogger_WithWorker(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	workerLog := log.WithWorker("pollard-rho-1")
	workerLog.Info("starting cycle search")

	output := buf.String()
	if !strings.Contains(output, "pollard-rho-1") {
		t.Error("expected worker name in log output")
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Info("race concluded", logger.WithField("winner", "pollard-p1"))

	output := buf.String()
	if !strings.Contains(output, "winner=pollard-p1") {
		t.Errorf("expected field in output, got: %s", output)
	}
}

func TestLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Success("factor found")

	if !strings.Contains(buf.String(), "factor found") {
		t.Error("success message missing")
	}
}

func TestLogger_InfoContext(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	lc, ok := log.(logger.LoggerContext)
	if !ok {
		t.Fatal("WorkerLogger should implement LoggerContext")
	}

	ctx := fcontext.WithRequestID(context.Background(), "req-42")
	ctx = fcontext.WithOperation(ctx, "factorize")
	lc.InfoContext(ctx, "pre-filter hit")

	output := buf.String()
	if !strings.Contains(output, "req-42") {
		t.Errorf("expected request id in output, got: %s", output)
	}
	if !strings.Contains(output, "factorize") {
		t.Errorf("expected operation in output, got: %s", output)
	}
}
