package statusfeed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests whose Origin host matches the Host header.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// requireSameOrigin rejects cross-site browser requests.
func requireSameOrigin(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sameOrigin(c.Request) {
			log.Warn("cross-origin request rejected",
				"origin", c.GetHeader("Origin"),
				"path", c.Request.URL.Path,
				"event", "feed_origin_rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cross-origin request"})
			return
		}
		c.Next()
	}
}

// MacroView is one entry of GET /macros.
type MacroView struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Trigger string `json:"trigger"`
	Display string `json:"display"`
}

// Router builds the gin handler for the feed:
//
//	GET  /status  latest message
//	POST /stop    stop everything and reset the counter
//	GET  /macros  macro list with display names
//	GET  /ws      websocket stream of messages
//
// Browser requests from another origin are refused with 403.
func Router(h *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requireSameOrigin(h.log))

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.Latest())
	})

	r.POST("/stop", func(c *gin.Context) {
		ctrl := h.controller()
		if ctrl == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not attached"})
			return
		}
		ctrl.StopImmediately()
		h.log.Info("stop requested", "remote", c.ClientIP(), "event", "feed_stop")
		c.JSON(http.StatusOK, h.Latest())
	})

	r.GET("/macros", func(c *gin.Context) {
		ctrl := h.controller()
		if ctrl == nil {
			c.JSON(http.StatusOK, []MacroView{})
			return
		}
		macros := ctrl.Macros()
		views := make([]MacroView, len(macros))
		for i, m := range macros {
			views[i] = MacroView{
				Index:   i,
				Name:    m.Name,
				Trigger: m.Trigger.String(),
				Display: m.DisplayName(),
			}
		}
		c.JSON(http.StatusOK, views)
	})

	r.GET("/ws", func(c *gin.Context) {
		serveWS(h, c)
	})

	return r
}

// Server runs the feed over HTTP.
type Server struct {
	hub  *Hub
	http *http.Server
	log  *slog.Logger
}

// NewServer returns a server for addr. gin runs in release mode.
func NewServer(addr string, hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		hub: hub,
		log: log,
		http: &http.Server{
			Addr:              addr,
			Handler:           Router(hub),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("status feed listening", "addr", ln.Addr().String(), "event", "feed_listening")
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown disconnects websocket clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func serveWS(h *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err, "event", "feed_upgrade_failed")
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.subscribe(cl) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}

// readPump discards client messages and detects disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read error", "error", err, "event", "feed_read_error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
