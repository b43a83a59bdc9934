package logx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "warn", wantDebug: false, wantInfo: false},
		{level: "nonsense", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			log := New(&bytes.Buffer{}, tt.level)
			rq.Equal(tt.wantDebug, log.Enabled(context.Background(), slog.LevelDebug))
			rq.Equal(tt.wantInfo, log.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}

func TestErrorAttr(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	var buf bytes.Buffer
	New(&buf, "info").Error("failed", Error(errors.New("boom")), slog.String(FieldStage, "match"))

	rq.Contains(buf.String(), "failed")
	rq.Contains(buf.String(), "boom")
	rq.Contains(buf.String(), "match")
}
