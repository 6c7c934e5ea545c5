package upstream

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhinos0608/skyrimnet-proxy/internal/config"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/theme"
)

func testLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), theme.Default())
}

func testPoolManager(t *testing.T) *PoolManager {
	t.Helper()
	pm := NewPoolManager(config.DefaultConfig().Proxy, testLogger())
	t.Cleanup(pm.CloseAll)
	return pm
}

func TestPoolManagerOnePoolPerOrigin(t *testing.T) {
	pm := testPoolManager(t)

	a := pm.ClientFor("https://openrouter.ai")
	b := pm.ClientFor("https://openrouter.ai")
	c := pm.ClientFor("https://api.z.ai")

	assert.Same(t, a, b, "same origin reuses the pool")
	assert.NotSame(t, a, c, "distinct origins get distinct pools")
	assert.Equal(t, 2, pm.PoolCount())
}

func TestPoolManagerConcurrentFirstUse(t *testing.T) {
	pm := testPoolManager(t)

	const workers = 16
	clients := make(chan any, workers)
	for i := 0; i < workers; i++ {
		go func() {
			clients <- pm.ClientFor("https://openrouter.ai")
		}()
	}

	first := <-clients
	for i := 1; i < workers; i++ {
		assert.Same(t, first, <-clients)
	}
	assert.Equal(t, 1, pm.PoolCount())
}

func TestPoolManagerCloseAll(t *testing.T) {
	pm := NewPoolManager(config.DefaultConfig().Proxy, testLogger())
	pm.ClientFor("https://openrouter.ai")
	pm.ClientFor("https://api.z.ai")
	require.Equal(t, 2, pm.PoolCount())

	pm.CloseAll()
	assert.Equal(t, 0, pm.PoolCount())

	// second close is a no-op, not a panic
	pm.CloseAll()
}
