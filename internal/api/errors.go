package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/certapp/internal/archive"
	"github.com/youruser/certapp/internal/batch"
	imagepkg "github.com/youruser/certapp/internal/image"
	"github.com/youruser/certapp/internal/template"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUploadTooLarge    = errors.New("upload too large")
)

// AbortWithError writes err as {"error": "..."} with the matching status.
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	var (
		decodeErr  *template.DecodeError
		archiveErr *archive.ArchiveError
	)
	switch {
	case errors.Is(err, template.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrWorkspaceNotFound),
		errors.Is(err, template.ErrFieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &archiveErr):
		return http.StatusInternalServerError
	case errors.As(err, &decodeErr),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, template.ErrNoBackground),
		errors.Is(err, template.ErrEmptyTemplate),
		errors.Is(err, template.ErrInvalidStyle),
		errors.Is(err, template.ErrInvalidColor),
		errors.Is(err, template.ErrEmptyImageData),
		errors.Is(err, template.ErrSizeMismatch),
		errors.Is(err, batch.ErrEmptyNameList),
		errors.Is(err, batch.ErrTooManyNames),
		errors.Is(err, imagepkg.ErrUnknownFont),
		errors.Is(err, imagepkg.ErrInvalidMultiplier),
		errors.Is(err, imagepkg.ErrEmptySubstitution):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
