package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/certapp/internal/template"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.registry.Len(),
		"fonts":    s.registry.renderer.Fonts().Families(),
	})
}

func (s *Server) CreateSession(c *gin.Context) {
	ws := s.registry.Create()
	w, h := ws.Canvas.Size()
	c.JSON(http.StatusCreated, gin.H{"id": ws.ID, "width": w, "height": h})
}

func (s *Server) GetSession(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       ws.ID,
		"selected": ws.Canvas.Selected(),
		"style":    ws.Canvas.Style(),
		"busy":     ws.Tracker.Busy(),
		"template": ws.Canvas.Snapshot().Describe(false),
	})
}

func (s *Server) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	ws, ok := s.registry.Get(id)
	if !ok {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id))
		return
	}
	if ws.Tracker.Busy() {
		AbortWithError(c, template.ErrBusy)
		return
	}
	s.registry.Delete(id)
	c.Status(http.StatusNoContent)
}

// ExportTemplate returns the full description, background bytes included, so
// it can be loaded into another workspace.
func (s *Server) ExportTemplate(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Canvas.Snapshot().Describe(true))
}

func (s *Server) ImportTemplate(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	var d template.Description
	if err := c.ShouldBindJSON(&d); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if err := ws.Canvas.Session().Load(d); err != nil {
		AbortWithError(c, err)
		return
	}
	_ = ws.Canvas.Select("")
	c.JSON(http.StatusOK, ws.Canvas.Snapshot().Describe(false))
}

func (s *Server) SetBackground(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: file: %v", ErrInvalidRequest, err))
		return
	}
	data, err := s.readUpload(fh)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	w, h, err := ws.Canvas.DropImage(data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"width": w, "height": h})
}

type addFieldRequest struct {
	FontSize  *int    `json:"font_size"`
	FontColor *string `json:"font_color"`
}

// AddField adds a name placeholder. Style members left out of the request
// fall back to the workspace's current control-panel style.
func (s *Server) AddField(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	var req addFieldRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	style := ws.Canvas.Style()
	if req.FontSize != nil {
		style.FontSize = *req.FontSize
	}
	if req.FontColor != nil {
		color, err := template.ParseRGB(*req.FontColor)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		style.FontColor = color
	}
	id, err := ws.Canvas.AddNameFieldWith(style)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	f, _ := ws.Canvas.Snapshot().Field(id)
	c.JSON(http.StatusCreated, gin.H{"id": id, "field": f})
}

type updateFieldRequest struct {
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Text        *string  `json:"text"`
	FontSize    *int     `json:"font_size"`
	FontColor   *string  `json:"font_color"`
	Scale       *float64 `json:"scale"`
	HideBacking *bool    `json:"hide_backing"`
}

func (r updateFieldRequest) patch() (template.Patch, error) {
	p := template.Patch{
		X:           r.X,
		Y:           r.Y,
		Scale:       r.Scale,
		Text:        r.Text,
		FontSize:    r.FontSize,
		HideBacking: r.HideBacking,
	}
	if r.FontColor != nil {
		color, err := template.ParseRGB(*r.FontColor)
		if err != nil {
			return template.Patch{}, err
		}
		p.FontColor = &color
	}
	return p, nil
}

// UpdateField applies a move, resize or restyle as one edit and selects the
// field. A rejected request leaves the workspace as it was.
func (s *Server) UpdateField(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	p, err := req.patch()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := ws.Canvas.Update(c.Param("fieldID"), p); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Canvas.Snapshot().Describe(false))
}

func (s *Server) RemoveField(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	if err := ws.Canvas.Remove(c.Param("fieldID")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addStampRequest struct {
	Size    int    `json:"size" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (s *Server) AddStamp(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	var req addStampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	id, err := ws.Canvas.AddQRStamp(template.QRSpec{Size: req.Size, Content: req.Content})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type selectRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Select hit-tests a click at (x, y). An empty id means the click landed on
// the background and the selection was cleared.
func (s *Server) Select(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	id, err := ws.Canvas.Click(req.X, req.Y)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) Preview(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	data, err := ws.Canvas.Preview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) Status(c *gin.Context) {
	ws, ok := s.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Tracker.Status())
}
