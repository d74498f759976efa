package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	stored := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), stored)

	if got := FromContext(ctx, zap.NewNop()); got != stored {
		t.Error("FromContext did not return the stored logger")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	fallback := zap.NewNop()

	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("FromContext did not fall back when nothing was stored")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Error("FromContext returned nil for nil fallback")
	}
}
