// Package bridge maintains a persistent line-oriented TCP connection to an
// external automation endpoint. Commands are plain text, one per line,
// either "set_<parameter>:<float>" or a small integer command code.
package bridge

import (
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 55555

	defaultConnectTimeout = 2 * time.Second
	defaultSendTimeout    = 500 * time.Millisecond
	maxReconnectAttempts  = 3
	reconnectDelay        = 500 * time.Millisecond

	queueCapacity = 1000
	batchSize     = 10
	batchWindow   = 10 * time.Millisecond
)

// Client is a keep-alive bridge connection with automatic reconnect, an
// async send queue and a per-parameter throttler for slider-style updates.
type Client struct {
	log  *zap.Logger
	addr string

	connectTimeout time.Duration
	sendTimeout    time.Duration

	mu   sync.Mutex
	conn net.Conn

	queue    chan string
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup

	throttler *Throttler

	statsMu sync.Mutex
	sent    int
	failed  int
}

func NewClient(log *zap.Logger, host string, port int) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	c := &Client{
		log:            log.Named("bridge"),
		addr:           net.JoinHostPort(host, fmt.Sprint(port)),
		connectTimeout: defaultConnectTimeout,
		sendTimeout:    defaultSendTimeout,
		queue:          make(chan string, queueCapacity),
		stop:           make(chan struct{}),
	}
	c.throttler = NewThrottler(16*time.Millisecond, 50*time.Millisecond, func(cmd string) {
		if err := c.Send(cmd); err != nil {
			c.log.Warn("throttled send failed", zap.Error(err))
		}
	})
	c.wg.Add(1)
	go c.worker()
	return c
}

// Connect dials the bridge endpoint. Safe to call when already connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.connectTimeout)
	if err != nil {
		return fmt.Errorf("bridge: connect %s: %w", c.addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}
	c.conn = conn
	c.log.Info("connected", zap.String("addr", c.addr))
	return nil
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send delivers one command synchronously, newline-terminated. On a broken
// connection it reconnects with backoff and retries. The lock is held only
// across the dial and write; backoff sleeps happen unlocked so concurrent
// senders and the batch worker are never stalled behind a reconnect.
func (c *Client) Send(command string) error {
	c.mu.Lock()
	if err := c.connectLocked(); err != nil {
		c.mu.Unlock()
		c.recordFailure()
		return err
	}
	err := c.writeLocked(command)
	if err == nil {
		c.recordSent(1)
		c.mu.Unlock()
		return nil
	}
	// Connection went stale.
	c.closeLocked()
	c.mu.Unlock()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		c.mu.Lock()
		if err := c.connectLocked(); err == nil {
			if err := c.writeLocked(command); err == nil {
				c.recordSent(1)
				c.mu.Unlock()
				return nil
			}
			c.closeLocked()
		}
		c.mu.Unlock()
		if attempt < maxReconnectAttempts {
			time.Sleep(reconnectDelay * time.Duration(attempt))
		}
	}
	c.recordFailure()
	return fmt.Errorf("bridge: reconnect failed after %d attempts", maxReconnectAttempts)
}

func (c *Client) writeLocked(command string) error {
	line := command
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	_, err := c.conn.Write([]byte(line))
	return err
}

// SendAsync queues a command for the background worker. Returns false when
// the queue is saturated and the command was dropped.
func (c *Client) SendAsync(command string) bool {
	select {
	case c.queue <- command:
		return true
	default:
		c.log.Warn("queue full, dropping command")
		return false
	}
}

// SendParameter delivers a high-frequency parameter update through the
// throttler, coalescing bursts to the last value per parameter.
func (c *Client) SendParameter(param, command string) {
	c.throttler.Update(param, command)
}

// Flush pushes any throttled pending values out immediately.
func (c *Client) Flush() {
	c.throttler.Flush()
}

// worker drains the async queue, batching writes inside a short window.
func (c *Client) worker() {
	defer c.wg.Done()
	for {
		var first string
		select {
		case <-c.stop:
			return
		case first = <-c.queue:
		}

		batch := []string{first}
		window := time.NewTimer(batchWindow)
	gather:
		for len(batch) < batchSize {
			select {
			case cmd := <-c.queue:
				batch = append(batch, cmd)
			case <-window.C:
				break gather
			case <-c.stop:
				window.Stop()
				return
			}
		}
		window.Stop()
		c.sendBatch(batch)
	}
}

func (c *Client) sendBatch(commands []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		c.recordFailure()
		c.log.Warn("batch dropped", zap.Int("size", len(commands)), zap.Error(err))
		return
	}
	var payload []byte
	for _, cmd := range commands {
		payload = append(payload, cmd...)
		if len(cmd) == 0 || cmd[len(cmd)-1] != '\n' {
			payload = append(payload, '\n')
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	if _, err := c.conn.Write(payload); err != nil {
		c.closeLocked()
		c.recordFailure()
		c.log.Warn("batch write failed", zap.Error(err))
		return
	}
	c.recordSent(len(commands))
}

// Close flushes throttled values, stops the worker and drops the
// connection.
func (c *Client) Close() {
	c.throttler.Flush()
	c.throttler.Clear()
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

// Stats reports send counters for diagnostics.
func (c *Client) Stats() (sent, failed int) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.sent, c.failed
}

func (c *Client) recordSent(n int) {
	c.statsMu.Lock()
	c.sent += n
	c.statsMu.Unlock()
}

func (c *Client) recordFailure() {
	c.statsMu.Lock()
	c.failed++
	c.statsMu.Unlock()
}
