package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/archive"
	"github.com/youruser/certapp/internal/batch"
	"github.com/youruser/certapp/internal/logger"
	"github.com/youruser/certapp/internal/names"
)

const HeaderFailedNames = "X-Failed-Names"

type generateRequest struct {
	Names      []string `json:"names"`
	Multiplier int      `json:"multiplier" binding:"omitempty,min=1"`
}

// Generate renders one certificate per name and answers with certificates.zip
// as an attachment. The workspace is locked for edits until it returns.
func (s *Server) Generate(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	req, err := s.bindGenerate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	release, err := ws.Canvas.Freeze()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer release()

	log := s.log.With(zap.String("workspace", ws.ID), zap.String("request_id", logger.RequestID(c)))
	report, err := s.batch.Generate(c.Request.Context(), ws.Canvas, req.Names,
		batch.WithMultiplier(req.Multiplier),
		batch.WithObserver(ws.Tracker),
	)
	if err != nil {
		log.Warn("generate failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	if err := archive.Export(c.Request.Context(), report, s.saver(c, ws, report)); err != nil {
		log.Error("export failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}
	log.Info("certificates delivered",
		zap.Int("rendered", len(report.Results)),
		zap.Int("failed", len(report.Failures)),
	)
}

// bindGenerate accepts either a JSON body or a multipart form carrying a
// newline separated "names" value and/or a "names_file" CSV upload.
func (s *Server) bindGenerate(c *gin.Context) (generateRequest, error) {
	var req generateRequest
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return req, nil
	}

	req.Names = names.Parse(c.PostForm("names"))
	if fh, err := c.FormFile("names_file"); err == nil {
		data, err := s.readUpload(fh)
		if err != nil {
			return req, err
		}
		fromFile, err := names.FromCSV(bytes.NewReader(data))
		if err != nil {
			return req, fmt.Errorf("%w: names_file: %v", ErrInvalidRequest, err)
		}
		req.Names = append(req.Names, fromFile...)
	}
	if m := c.PostForm("multiplier"); m != "" {
		v, err := strconv.Atoi(m)
		if err != nil || v < 1 {
			return req, fmt.Errorf("%w: multiplier %q", ErrInvalidRequest, m)
		}
		req.Multiplier = v
	}
	return req, nil
}

// saver writes the archive to the response, keeping a copy under OutputDir
// when one is configured.
func (s *Server) saver(c *gin.Context, ws *Workspace, report *batch.Report) archive.Saver {
	respond := archive.SaverFunc(func(_ context.Context, filename string, data []byte) error {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header(HeaderFailedNames, strconv.Itoa(len(report.Failures)))
		c.Data(http.StatusOK, "application/zip", data)
		return nil
	})
	if s.cfg.OutputDir == "" {
		return respond
	}
	keep := archive.DirSaver{Dir: filepath.Join(s.cfg.OutputDir, ws.ID)}
	return archive.SaverFunc(func(ctx context.Context, filename string, data []byte) error {
		if err := keep.Save(ctx, filename, data); err != nil {
			return err
		}
		return respond(ctx, filename, data)
	})
}
