package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/playback"
	"panelreel/internal/window"
)

// Player is the loop-owned navigation surface the bridge drives.
type Player interface {
	Len() int
	Current() int
	Snapshot() []window.PageStatus
	GoToPage(n int) *loop.Signal
}

// Options configures a Server.
type Options struct {
	Bind       string
	EnableCORS bool
	Debug      bool
	// RequestTimeout bounds how long a handler waits on the loop.
	RequestTimeout time.Duration
	// StreamBuffer is the per-client event backlog before events are dropped.
	StreamBuffer int
}

// Server is the tooling bridge.
type Server struct {
	pb       *playback.Context
	player   Player
	opts     Options
	logger   *slog.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader

	listener net.Listener
	server   *http.Server
}

// State is the GET /api/state payload.
type State struct {
	Current int                 `json:"current"`
	Pages   int                 `json:"pages"`
	Muted   bool                `json:"muted"`
	Window  []window.PageStatus `json:"window"`
}

// OptionsFromContext derives server options from the playback config.
func OptionsFromContext(pb *playback.Context) Options {
	return Options{
		Bind:       pb.Config.Remote.Bind,
		EnableCORS: pb.Config.Remote.EnableCORS,
		Debug:      strings.EqualFold(pb.Config.Logging.Level, "debug"),
	}
}

// New constructs the bridge. Call Start to listen, or use Handler directly.
func New(pb *playback.Context, player Player, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.StreamBuffer <= 0 {
		opts.StreamBuffer = 64
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	s := &Server{
		pb:     pb,
		player: player,
		opts:   opts,
		logger: logging.NewComponentLogger(pb.Logger, "remote"),
		router: router,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/state", s.state)
	api.POST("/pages/:index", s.navigate)
	api.POST("/mute", s.mute)
	api.GET("/events", s.streamEvents)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr reports the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves in the background until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("remote listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("remote server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("remote bridge listening", logging.String("addr", listener.Addr().String()))
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) state(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()
	st, err := loop.Await(ctx, s.pb.Sched, func() State {
		return State{
			Current: s.player.Current(),
			Pages:   s.player.Len(),
			Muted:   s.pb.Audio.Muted(),
			Window:  s.player.Snapshot(),
		}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// navigate moves to a page. With ?wait=true it answers after the window
// settles.
func (s *Server) navigate(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page index must be an integer"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()

	type result struct {
		settled *loop.Signal
		current int
		ok      bool
	}
	res, err := loop.Await(ctx, s.pb.Sched, func() result {
		if index < 0 || index >= s.player.Len() {
			return result{}
		}
		sig := s.player.GoToPage(index)
		return result{settled: sig, current: s.player.Current(), ok: true}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if !res.ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("page %d out of range", index)})
		return
	}
	s.logger.Info("remote navigation", logging.Int(logging.FieldPageIndex, res.current))

	settled := false
	if c.Query("wait") == "true" {
		select {
		case <-res.settled.Done():
			settled = true
		case <-ctx.Done():
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "navigation did not settle", "current": res.current})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"current": res.current, "settled": settled})
}

type muteRequest struct {
	Muted *bool `json:"muted"`
}

// mute sets the global mute flag, or toggles it when the body omits muted.
func (s *Server) mute(c *gin.Context) {
	var req muteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()
	muted, err := loop.Await(ctx, s.pb.Sched, func() bool {
		if req.Muted == nil {
			return s.pb.Audio.ToggleGlobalMute()
		}
		s.pb.Audio.SetMuted(*req.Muted)
		return s.pb.Audio.Muted()
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": muted})
}
