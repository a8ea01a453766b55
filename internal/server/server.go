// Package server exposes time-range classification and resolution over
// HTTP using Fiber.
package server

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/derickschaefer/timefilter/internal/app"
	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// Resolver resolves expressions. *timerange.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, expr string) timerange.ResolvedRange
}

// SavedRanges reads named expressions. *store.Store implements it.
type SavedRanges interface {
	ListSavedRanges() ([]model.SavedRange, error)
	GetSavedRange(name string) (model.SavedRange, bool, error)
}

// Options configures a Server.
type Options struct {
	// Timeout bounds each resolution. Zero means no extra bound.
	Timeout time.Duration
	// LogOutput receives access log lines. Nil means stderr.
	LogOutput io.Writer
}

// Server is the HTTP surface.
type Server struct {
	app      *fiber.App
	resolver Resolver
	saved    SavedRanges
	timeout  time.Duration
}

// New builds a Server. saved may be nil, in which case the saved range
// routes are not mounted.
func New(resolver Resolver, saved SavedRanges, opts Options) *Server {
	s := &Server{
		resolver: resolver,
		saved:    saved,
		timeout:  opts.Timeout,
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "timefilter",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: "requestid",
	}))
	s.app.Use(logger.New(logger.Config{
		Output: out,
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api/v1")
	api.Get("/frame", s.frame)
	api.Get("/time_range", s.timeRange)
	if s.saved != nil {
		api.Get("/saved_ranges", s.listSaved)
		api.Get("/saved_ranges/:name", s.getSaved)
	}
}

// App returns the underlying Fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) frame(c *fiber.Ctx) error {
	expr := c.Query("q")
	if expr == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing q parameter")
	}
	return c.JSON(app.FrameRow(expr))
}

func (s *Server) timeRange(c *fiber.Ctx) error {
	expr := c.Query("q")
	if expr == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing q parameter")
	}

	ctx := c.UserContext()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res := s.resolver.Resolve(ctx, expr)
	if !res.OK() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      res.Error,
			"expression": expr,
		})
	}
	return c.JSON(app.TimeRangeRow(expr, res))
}

func (s *Server) listSaved(c *fiber.Ctx) error {
	ranges, err := s.saved.ListSavedRanges()
	if err != nil {
		return err
	}
	if ranges == nil {
		ranges = []model.SavedRange{}
	}
	return c.JSON(ranges)
}

func (s *Server) getSaved(c *fiber.Ctx) error {
	r, ok, err := s.saved.GetSavedRange(c.Params("name"))
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "saved range not found")
	}
	return c.JSON(r)
}

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
