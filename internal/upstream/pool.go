package upstream

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/rhinos0608/skyrimnet-proxy/internal/config"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
)

// originPool is one keep-alive pool bound to a single upstream origin.
// Created on first use and kept for the process lifetime.
type originPool struct {
	client      *http.Client
	transport   *http.Transport
	lastRecycle atomic.Int64 // unix nanos of the last idle-connection sweep
}

// PoolManager owns one connection pool per upstream origin. Pools are created
// lazily and never rebuilt; LoadOrStore makes concurrent first use of the same
// origin converge on a single pool. A background sweeper recycles idle
// connections before they hit the configured idle ceiling, so a stale
// keep-alive socket is never handed to a request.
type PoolManager struct {
	cfg    config.ProxyConfig
	pools  *xsync.Map[string, *originPool]
	logger *logger.StyledLogger

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	sweeperWg sync.WaitGroup
}

func NewPoolManager(cfg config.ProxyConfig, log *logger.StyledLogger) *PoolManager {
	pm := &PoolManager{
		cfg:    cfg,
		pools:  xsync.NewMap[string, *originPool](),
		logger: log,
		done:   make(chan struct{}),
	}

	pm.sweeperWg.Add(1)
	go pm.sweep()

	return pm
}

// ClientFor returns the pooled HTTP client for an origin, creating the pool
// on first use. Must not be called after CloseAll.
func (pm *PoolManager) ClientFor(origin string) *http.Client {
	if pm.closed.Load() {
		// contract violation worth shouting about, the transport will still
		// work but nothing recycles or closes it
		pm.logger.Error("Connection pool manager used after CloseAll", "origin", origin)
	}

	if pool, ok := pm.pools.Load(origin); ok {
		return pool.client
	}

	fresh := pm.buildPool()
	pool, loaded := pm.pools.LoadOrStore(origin, fresh)
	if loaded {
		// lost the creation race, discard ours
		fresh.transport.CloseIdleConnections()
	} else {
		pm.logger.Debug("Created connection pool", "origin", origin,
			"max_conns", pm.cfg.MaxConnsPerOrigin, "idle_timeout", pm.cfg.IdleConnTimeout)
	}

	return pool.client
}

// PoolCount returns the number of live origin pools
func (pm *PoolManager) PoolCount() int {
	return pm.pools.Size()
}

// CloseAll drains every pool's idle connections and clears the pool map,
// waiting for the idle sweeper to stop. The manager is unusable afterwards.
func (pm *PoolManager) CloseAll() {
	pm.closeOnce.Do(func() {
		pm.closed.Store(true)
		close(pm.done)
		pm.sweeperWg.Wait()

		var wg sync.WaitGroup
		pm.pools.Range(func(origin string, pool *originPool) bool {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pool.transport.CloseIdleConnections()
			}()
			return true
		})
		wg.Wait()

		pm.pools.Clear()
		pm.logger.Debug("Closed all connection pools")
	})
}

func (pm *PoolManager) buildPool() *originPool {
	dialer := &net.Dialer{
		Timeout:   pm.cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxConnsPerHost:     pm.cfg.MaxConnsPerOrigin,
		MaxIdleConns:        pm.cfg.MaxConnsPerOrigin,
		MaxIdleConnsPerHost: pm.cfg.MaxConnsPerOrigin,
		IdleConnTimeout:     pm.cfg.IdleConnTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ClientSessionCache: tls.NewLRUClientSessionCache(pm.cfg.TLSSessionCache),
		},
		TLSHandshakeTimeout:   pm.cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	pool := &originPool{
		transport: transport,
		client: &http.Client{
			Transport: transport,
			// Per-request deadlines come from the caller's context
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	pool.lastRecycle.Store(time.Now().UnixNano())

	return pool
}

// sweep recycles idle connections shortly before they reach the idle ceiling,
// using the early-recycle threshold as the safety margin
func (pm *PoolManager) sweep() {
	defer pm.sweeperWg.Done()

	interval := pm.cfg.EarlyRecycle
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ceiling := pm.cfg.MaxIdleTime - pm.cfg.EarlyRecycle
	if ceiling <= 0 {
		ceiling = pm.cfg.MaxIdleTime
	}

	for {
		select {
		case <-pm.done:
			return
		case now := <-ticker.C:
			pm.pools.Range(func(origin string, pool *originPool) bool {
				last := time.Unix(0, pool.lastRecycle.Load())
				if now.Sub(last) >= ceiling {
					pool.transport.CloseIdleConnections()
					pool.lastRecycle.Store(now.UnixNano())
				}
				return true
			})
		}
	}
}
