package narrative

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFallbackApply(t *testing.T) {
	tests := []struct {
		name string
		fn   EnhancerFunc
		want string
	}{
		{
			name: "enhanced",
			fn: func(_ context.Context, raw string) (string, error) {
				return "Reviewed and revised " + raw + ".", nil
			},
			want: "Reviewed and revised lease.",
		},
		{
			name: "error keeps raw",
			fn: func(context.Context, string) (string, error) {
				return "", errors.New("model unavailable")
			},
			want: "lease",
		},
		{
			name: "blank keeps raw",
			fn: func(context.Context, string) (string, error) {
				return "   ", nil
			},
			want: "lease",
		},
		{
			name: "timeout keeps raw",
			fn: func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return "too late", nil
			},
			want: "lease",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFallback(tt.fn, 20*time.Millisecond, quiet)
			assert.Equal(t, tt.want, f.Apply(context.Background(), "lease"))
		})
	}
}

func TestNilFallback(t *testing.T) {
	var f *Fallback
	assert.Equal(t, "raw", f.Apply(context.Background(), "raw"))
	assert.Equal(t, "raw", NewFallback(nil, 0, nil).Apply(context.Background(), "raw"))
}
