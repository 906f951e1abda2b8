// Package api exposes certificate workspaces over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/batch"
	"github.com/youruser/certapp/internal/config"
	"github.com/youruser/certapp/internal/logger"
)

type Server struct {
	engine   *gin.Engine
	registry *Registry
	batch    *batch.Orchestrator
	cfg      config.Config
	log      *zap.Logger
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxBytes
	r.Use(gin.Recovery(), logger.GinMiddleware(log))
	return r
}

func NewServer(engine *gin.Engine, registry *Registry, orchestrator *batch.Orchestrator, cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine:   engine,
		registry: registry,
		batch:    orchestrator,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.Health)
		api.POST("/sessions", s.CreateSession)

		ws := api.Group("/sessions/:id")
		ws.GET("", s.GetSession)
		ws.DELETE("", s.DeleteSession)
		ws.GET("/template", s.ExportTemplate)
		ws.PUT("/template", s.ImportTemplate)
		ws.PUT("/background", s.SetBackground)
		ws.POST("/fields", s.AddField)
		ws.PATCH("/fields/:fieldID", s.UpdateField)
		ws.DELETE("/fields/:fieldID", s.RemoveField)
		ws.POST("/stamps", s.AddStamp)
		ws.POST("/select", s.Select)
		ws.GET("/preview", s.Preview)
		ws.GET("/status", s.Status)
		ws.POST("/generate", s.Generate)
	}
}

func (s *Server) workspace(c *gin.Context) (*Workspace, bool) {
	id := c.Param("id")
	ws, ok := s.registry.Get(id)
	if !ok {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id))
		return nil, false
	}
	return ws, true
}

// readUpload reads a multipart file fully, refusing anything over the
// configured upload limit.
func (s *Server) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	limit := s.cfg.Upload.MaxBytes
	if limit > 0 && fh.Size > limit {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrUploadTooLarge, fh.Size, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// bindOptionalJSON binds a JSON body, treating an empty body as zero values.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
