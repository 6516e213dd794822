package api

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"swarm-relay/internal/config"
	"swarm-relay/internal/relay"
)

var (
	errConnClosed    = errors.New("connection closed")
	errSendQueueFull = errors.New("send queue full")
)

// wsConn adapts one *websocket.Conn to the relay.Conn interface. Outbound
// messages pass through a buffered channel drained by a dedicated write
// pump, so Send never blocks the relay's critical section. A full queue is
// reported as a send failure: a peer too slow to drain its buffer gets
// pruned instead of stalling fan-out.
type wsConn struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func newWSConn(ws *websocket.Conn, cfg config.TransportConfig) *wsConn {
	return &wsConn{
		id:           uuid.NewString(),
		ws:           ws,
		send:         make(chan []byte, cfg.SendQueueSize),
		done:         make(chan struct{}),
		writeTimeout: cfg.WriteTimeout,
		pongTimeout:  cfg.PongTimeout,
	}
}

// ID returns the transport-assigned connection identity
func (c *wsConn) ID() string { return c.id }

// Send enqueues one outbound message without blocking
func (c *wsConn) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close shuts the connection down; safe to call from any goroutine and
// idempotent. Closing unblocks both pumps.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump drains the send queue onto the socket with a per-message write
// deadline and keeps the connection alive with periodic pings.
func (c *wsConn) writePump() {
	pingInterval := c.pongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Gateway accepts WebSocket upgrades and feeds the relay. It enforces the
// transport caps (global and per-IP) before a connection ever reaches the
// registry.
type Gateway struct {
	relay    *relay.Relay
	cfg      config.TransportConfig
	limiter  *ConnLimiter
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
	active   atomic.Int32
}

// NewGateway creates the WebSocket gateway for the given relay
func NewGateway(r *relay.Relay, cfg config.TransportConfig, log *zap.SugaredLogger) *Gateway {
	g := &Gateway{
		relay:   r,
		cfg:     cfg,
		limiter: NewConnLimiter(cfg.MaxConnectionsPerIP),
		log:     log,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			if g.originAllowed(origin) {
				return true
			}
			log.Warnw("websocket upgrade rejected by origin check", "origin", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return g
}

// originAllowed checks the Origin header against the configured list.
// An empty list allows everything: game clients are not browsers and send
// no meaningful origin.
func (g *Gateway) originAllowed(origin string) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// HandleWS upgrades the request and runs the connection's read loop until
// the stream closes. The read loop goroutine is the HTTP handler goroutine;
// only the write pump is extra.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if int(g.active.Load()) >= g.cfg.MaxConnections {
		g.log.Warnw("websocket rejected: total connection limit", "limit", g.cfg.MaxConnections)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !g.limiter.Allow(ip) {
		g.log.Warnw("websocket rejected: per-IP connection limit", "ip", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.limiter.Release(ip)
		g.log.Debugw("websocket upgrade failed", "ip", ip, "error", err)
		return
	}

	conn := newWSConn(ws, g.cfg)
	count := g.active.Add(1)
	UpdateWSConnections(int(count))
	g.log.Debugw("websocket connected", "conn_id", conn.ID(), "ip", ip, "total", count)

	g.relay.Attach(conn)
	go conn.writePump()

	g.readLoop(conn, ip)
}

// readLoop pulls inbound frames and hands them to the relay. On any read
// error (client close, timeout, protocol violation) it tears the session
// down exactly once via Detach.
func (g *Gateway) readLoop(conn *wsConn, ip string) {
	defer func() {
		g.relay.Detach(conn)
		conn.Close()
		g.limiter.Release(ip)
		count := g.active.Add(-1)
		UpdateWSConnections(int(count))
		g.log.Debugw("websocket disconnected", "conn_id", conn.ID(), "remaining", count)
	}()

	conn.ws.SetReadLimit(g.cfg.ReadLimit)
	conn.ws.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	})

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		IncrementWSMessages()
		g.relay.HandleMessage(conn, payload)
	}
}
