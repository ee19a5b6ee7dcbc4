// Package server exposes the conversion pipeline over HTTP.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/fattura-renderer/internal/extractor"
	"github.com/rezonia/fattura-renderer/internal/logger"
	"github.com/rezonia/fattura-renderer/internal/model"
	"github.com/rezonia/fattura-renderer/internal/processor"
	"github.com/rezonia/fattura-renderer/internal/render"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
	// Timeout bounds one conversion, zero means no bound
	Timeout time.Duration
	Debug   bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	logger   *zap.Logger
	srv      *http.Server
}

// Option configures the server
type Option func(*Server)

// WithPipeline sets the conversion pipeline
func WithPipeline(p *processor.Pipeline) Option {
	return func(s *Server) {
		if p != nil {
			s.pipeline = p
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server
func NewServer(config *Config, opts ...Option) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: config,
		router: gin.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = processor.NewPipeline(processor.WithLogger(s.logger))
	}

	s.router.Use(
		logger.RequestID(),
		logger.GinMiddleware(s.logger),
		logger.Recovery(s.logger),
		logger.BodyLimit(config.MaxBodySize),
	)

	s.setupRoutes()
	s.srv = &http.Server{
		Addr:         config.Address,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/convert", s.handleConvert)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/tree", s.handleTree)
		v1.POST("/extract", s.handleExtract)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/render", s.handleRender)
		v1.POST("/info", s.handleInfo)
	}
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("address", s.config.Address))

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.config.Timeout)
	}
	return context.WithCancel(c.Request.Context())
}

// handleConvert converts the first uploaded file to PDF
func (s *Server) handleConvert(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.writeBodyError(c, err, "expected a multipart upload")
		return
	}

	names := make([]string, 0, len(form.File))
	for name, files := range form.File {
		if len(files) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no file uploaded"})
		return
	}
	sort.Strings(names)
	header := form.File[names[0]][0]

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read uploaded file"})
		return
	}

	cfg, ok := s.displayConfig(c)
	if !ok {
		return
	}

	ctx, cancel := s.context(c)
	defer cancel()

	conv, err := s.pipeline.ConvertXML(ctx, data, cfg)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer conv.PDF.Close()

	// fail with a JSON error while headers can still be changed
	stream := bufio.NewReader(conv.PDF)
	if _, err := stream.Peek(1); err != nil {
		s.writeError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", stream, map[string]string{
		"Content-Disposition": "attachment; filename=invoice.pdf",
		"X-Invoice-Warnings":  strconv.Itoa(len(conv.Warnings)),
	})
}

func (s *Server) handleTree(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := s.context(c)
	defer cancel()

	tree, err := s.pipeline.ParseTree(ctx, body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (s *Server) handleExtract(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := s.context(c)
	defer cancel()

	result := s.pipeline.ProcessXMLBytes(ctx, body)
	if result.Error != nil {
		s.writeError(c, result.Error)
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{
		Invoice:  result.Invoice,
		Warnings: result.Warnings,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := s.context(c)
	defer cancel()

	result := s.pipeline.ProcessXMLBytes(ctx, body)
	if result.Error != nil {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Valid:  false,
			Errors: []string{result.Error.Error()},
		})
		return
	}

	var errs []string
	for _, f := range model.CheckInvoice(result.Invoice) {
		errs = append(errs, f.Error())
	}

	c.JSON(http.StatusOK, ValidationResponse{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: model.WarningStrings(result.Warnings),
	})
}

func (s *Server) handleRender(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	cfg, ok := s.displayConfig(c)
	if !ok {
		return
	}

	ctx, cancel := s.context(c)
	defer cancel()

	result := s.pipeline.ProcessXMLBytes(ctx, body)
	if result.Error != nil {
		s.writeError(c, result.Error)
		return
	}

	doc := s.pipeline.Render(result.Invoice, cfg)
	c.JSON(http.StatusOK, RenderResponse{
		Pages:     doc.Pages,
		Fallbacks: doc.Fallbacks,
		Warnings:  result.Warnings,
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	format := processor.DetectFormat(body)
	resp := InfoResponse{
		Format: format.String(),
		Size:   len(body),
	}

	if format == processor.FormatXML {
		ctx, cancel := s.context(c)
		defer cancel()

		if tree, err := s.pipeline.ParseTree(ctx, body); err == nil {
			if keys := tree.Keys(); len(keys) > 0 {
				resp.Root = keys[0]
			}
			resp.Invoice = extractor.CanExtract(tree)
		}
		if resp.Invoice {
			if result := s.pipeline.ProcessXMLBytes(ctx, body); result.Error == nil {
				resp.Installments = len(result.Invoice.Installments)
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// displayConfig applies the locale and footer query parameters to the
// pipeline defaults
func (s *Server) displayConfig(c *gin.Context) (render.DisplayConfig, bool) {
	cfg := s.pipeline.DisplayConfig()
	if locale, ok := c.GetQuery("locale"); ok {
		cfg.Locale = locale
	}
	if footer, ok := c.GetQuery("footer"); ok {
		v, err := strconv.ParseBool(footer)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "footer must be a boolean", Field: "footer"})
			return cfg, false
		}
		cfg.Footer = v
	}
	return cfg, true
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		s.writeBodyError(c, err, "failed to read request body")
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}

func (s *Server) writeBodyError(c *gin.Context, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// writeError maps pipeline errors to status codes
func (s *Server) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		parseErr     *model.ParseError
		malformedErr *model.MalformedInvoiceError
		renderErr    *model.RenderError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "conversion timed out"})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Field: parseErr.Field})
	case errors.As(err, &malformedErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Field: malformedErr.Field})
	case errors.As(err, &renderErr):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: renderErr.Message, Code: renderErr.Code})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
