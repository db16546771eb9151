package log

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtx(t *testing.T) {
	ctx := context.Background()

	l1 := Ctx(ctx)
	require.NotNil(t, l1)
	assert.Equal(t, slog.Default(), l1, "a bare context falls back to the process default")

	custom := slog.New(slog.NewTextHandler(os.Stdout, nil))
	require.NotEqual(t, slog.Default(), custom)

	ctx = With(ctx, custom)
	l2 := Ctx(ctx)
	require.NotNil(t, l2)
	assert.Equal(t, custom, l2, "Ctx should return the logger stored with With")
}
