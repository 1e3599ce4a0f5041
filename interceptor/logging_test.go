package interceptor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-persistence/storage"
)

func TestLoggingAlwaysDelegates(t *testing.T) {
	var buf bytes.Buffer
	logging := NewLogging(zerolog.New(&buf))

	handler, calls := countingHandler(storage.Result{Entity: "x"}, nil)
	op := NewContext(OpGet, "test_item")

	result, err := logging.Before(context.Background(), op, handler)
	if err != nil || result.Entity != "x" || *calls != 1 {
		t.Fatalf("logging must pass the call through: %v %v", result, err)
	}
	if _, ok := op.Value(logStartKey); !ok {
		t.Error("start time not recorded")
	}

	out := buf.String()
	if !strings.Contains(out, "operation start") || !strings.Contains(out, "operation complete") {
		t.Errorf("log output = %q", out)
	}
	if !strings.Contains(out, `"operation":"get"`) || !strings.Contains(out, `"entity_type":"test_item"`) {
		t.Errorf("log fields missing: %q", out)
	}
}

func TestLoggingPreservesErrors(t *testing.T) {
	var buf bytes.Buffer
	logging := NewLogging(zerolog.New(&buf))

	boom := errors.New("storage down")
	handler, _ := countingHandler(storage.Result{}, boom)
	op := NewContext(OpUpdate, "test_item")

	_, err := logging.Before(context.Background(), op, handler)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, logging must never swallow", err)
	}
	if !strings.Contains(buf.String(), "operation failed") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestLoggingHandleErrorPassesThrough(t *testing.T) {
	logging := NewLogging(zerolog.Nop())
	op := NewContext(OpUpdate, "test_item")

	boom := errors.New("boom")
	if err := logging.HandleError(context.Background(), op, boom); err != boom {
		t.Errorf("err = %v, want unchanged", err)
	}
}
