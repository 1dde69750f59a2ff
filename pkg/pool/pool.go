package pool

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PoolConfig tunes the transports handed out for outbound calls.
type PoolConfig struct {
	ConnectionTimeout   time.Duration
	RequestTimeout      time.Duration
	IdleTimeout         time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		ConnectionTimeout:   5 * time.Second,
		RequestTimeout:      10 * time.Second,
		IdleTimeout:         90 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
	}
}

// ConnectionPool keeps one keep-alive HTTP client per outbound integration
// so connections to the OAuth2 provider are reused across requests.
type ConnectionPool struct {
	mu      sync.RWMutex
	clients map[string]*http.Client
	config  PoolConfig
	logger  *zap.Logger
}

func NewConnectionPool(config PoolConfig, logger *zap.Logger) *ConnectionPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionPool{
		clients: make(map[string]*http.Client),
		config:  config,
		logger:  logger,
	}
}

// GetHTTPClient returns the client registered under name, creating it on
// first use.
func (p *ConnectionPool) GetHTTPClient(name string) *http.Client {
	p.mu.RLock()
	client, exists := p.clients[name]
	p.mu.RUnlock()

	if exists {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists = p.clients[name]; exists {
		return client
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   p.config.ConnectionTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          p.config.MaxIdleConns,
		MaxIdleConnsPerHost:   p.config.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	client = &http.Client{
		Transport: transport,
		Timeout:   p.config.RequestTimeout,
	}
	p.clients[name] = client

	p.logger.Info("Created outbound HTTP client",
		zap.String("name", name),
		zap.Duration("timeout", p.config.RequestTimeout),
	)

	return client
}

// CloseAllConnections drops idle keep-alive connections of every client.
func (p *ConnectionPool) CloseAllConnections() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, client := range p.clients {
		client.CloseIdleConnections()
		p.logger.Debug("Closed idle connections", zap.String("name", name))
	}
}

func (p *ConnectionPool) Stats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.clients))
	for name := range p.clients {
		names = append(names, name)
	}
	return map[string]any{
		"http_clients": len(p.clients),
		"names":        names,
	}
}
