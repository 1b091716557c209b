package blob_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket/blob"
	"github.com/xraph/docket/blob/memory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"invoice-INV-000001.pdf", "a.pdf", "x"} {
		assert.NoError(t, blob.ValidateKey(key), key)
	}
	for _, key := range []string{"", "../etc/passwd", "a/b.pdf", `a\b`, ".hidden", "..", "."} {
		assert.ErrorIs(t, blob.ValidateKey(key), blob.ErrInvalidKey, key)
	}
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	inner := memory.New("https://files.example.com/")
	inner.FailNext(errors.New("connection reset"), errors.New("503"))

	r := blob.NewRetrying(inner,
		blob.WithInitialInterval(time.Millisecond),
		blob.WithMaxTries(5),
		blob.WithLogger(quiet),
	)

	url, err := r.Put(context.Background(), "invoice-INV-000007.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/invoice-INV-000007.pdf", url)
	assert.Equal(t, 3, inner.Puts())

	obj, ok := inner.Get("invoice-INV-000007.pdf")
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF"), obj.Data)
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestRetryingGivesUp(t *testing.T) {
	inner := memory.New("mem://bucket")
	boom := errors.New("bucket offline")
	inner.FailNext(boom, boom, boom)

	r := blob.NewRetrying(inner,
		blob.WithInitialInterval(time.Millisecond),
		blob.WithMaxTries(2),
		blob.WithLogger(quiet),
	)

	_, err := r.Put(context.Background(), "k.pdf", "application/pdf", nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, inner.Puts())
	assert.Equal(t, 0, inner.Len())
}

func TestRetryingRejectsInvalidKeyWithoutCalling(t *testing.T) {
	inner := memory.New("mem://bucket")
	r := blob.NewRetrying(inner, blob.WithLogger(quiet))

	_, err := r.Put(context.Background(), "../x.pdf", "application/pdf", nil)
	require.ErrorIs(t, err, blob.ErrInvalidKey)
	assert.Equal(t, 0, inner.Puts())
}

func TestMemoryOverwriteByKey(t *testing.T) {
	s := memory.New("mem://bucket")
	ctx := context.Background()

	_, err := s.Put(ctx, "a.pdf", "application/pdf", []byte("first"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "a.pdf", "application/pdf", []byte("second"))
	require.NoError(t, err)

	obj, ok := s.Get("a.pdf")
	require.True(t, ok)
	assert.Equal(t, "second", string(obj.Data))
	assert.Equal(t, 1, s.Len())
}
