package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/notify"
	"github.com/emrgen/coa/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *handlers) submitContact(c *gin.Context) {
	var sub model.ContactSubmission
	if !bind(c, &sub) {
		return
	}
	sub.ID = 0
	saved, err := h.submissions.SubmitContact(c.Request.Context(), &sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *handlers) submitSample(c *gin.Context) {
	var sub model.SampleSubmission
	if !bind(c, &sub) {
		return
	}
	sub.ID = 0
	saved, err := h.submissions.SubmitSample(c.Request.Context(), &sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *handlers) subscribe(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if !bind(c, &body) {
		return
	}
	sub, err := h.submissions.Subscribe(c.Request.Context(), body.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *handlers) listSubmissions(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		out any
		err error
	)
	switch c.Param("kind") {
	case "contact":
		out, err = h.submissions.ListContacts(ctx)
	case "sample":
		out, err = h.submissions.ListSamples(ctx)
	case "newsletter":
		out, err = h.submissions.ListSubscriptions(ctx)
	default:
		err = fmt.Errorf("%w: unknown submission kind %q", service.ErrNotFound, c.Param("kind"))
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// sendEmail dispatches a templated email straight away.
func (h *handlers) sendEmail(c *gin.Context) {
	var req notify.Request
	if !bind(c, &req) {
		return
	}
	id, err := h.email.Dispatch(c.Request.Context(), req)
	if errors.Is(err, notify.ErrUnknownEmailType) {
		err = fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *handlers) siteConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.site)
}

// readObject serves a stored object for the drivers without a public endpoint of their own.
func (h *handlers) readObject(c *gin.Context) {
	if c.Param("bucket") != h.bucket {
		writeError(c, fmt.Errorf("bucket %s: %w", c.Param("bucket"), service.ErrNotFound))
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	info, body, err := h.blobs.Get(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, body, map[string]string{
		"Cache-Control": "public, max-age=3600",
	})
}
