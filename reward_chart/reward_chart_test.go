package reward_chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailingMeans(t *testing.T) {
	means := TrailingMeans([]float64{1, 0, 1, 1, 0}, 2)
	require.Len(t, means, 5)
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.5, 1, 0.5}, means, 1e-12)

	assert.Empty(t, TrailingMeans(nil, 100))
	assert.Equal(t, []float64{1, 0}, TrailingMeans([]float64{1, 0}, 0))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []float64{0, 1, 1}, 100))

	page := buf.String()
	assert.Contains(t, page, "FrozenLake training rewards")
	assert.Contains(t, page, "100-ep mean")
	assert.Contains(t, page, "echarts")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, nil, 100), ErrNoRewards)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "rewards.html")
	require.NoError(t, WriteFile(path, []float64{1, 0, 1}, 2))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "2-ep mean")
}
