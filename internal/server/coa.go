package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/emrgen/coa/internal/service"
	"github.com/emrgen/coa/internal/viewer"
	"github.com/gin-gonic/gin"
)

func (h *handlers) listCOAs(c *gin.Context) {
	var (
		coas []*service.COA
		err  error
	)
	if q := c.Query("q"); q != "" {
		coas, err = h.coas.SearchCOAs(c.Request.Context(), q)
	} else {
		coas, err = h.coas.GetAllCOAs(c.Request.Context())
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coas)
}

func (h *handlers) nextCOAID(c *gin.Context) {
	code, err := h.coas.GenerateCOAID(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coaId": code})
}

func (h *handlers) getCOA(c *gin.Context) {
	coa, err := h.coas.GetCOAByID(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	if coa == nil {
		writeError(c, fmt.Errorf("coa %s: %w", c.Param("code"), service.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, coa)
}

func (h *handlers) createCOA(c *gin.Context) {
	var input service.COAInput
	if !bind(c, &input) {
		return
	}
	coa, err := h.coas.AddCOA(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coa)
}

func (h *handlers) updateCOA(c *gin.Context) {
	var input service.COAInput
	if !bind(c, &input) {
		return
	}
	coa, err := h.coas.UpdateCOA(c.Request.Context(), c.Param("code"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coa)
}

func (h *handlers) deleteCOA(c *gin.Context) {
	if err := h.coas.DeleteCOA(c.Request.Context(), c.Param("code")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) uploadCOAFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, fmt.Errorf("%w: multipart field \"file\" is required", service.ErrInvalidFile))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	coa, err := h.coas.UploadFile(c.Request.Context(), c.Param("code"), header.Filename, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coa)
}

func (h *handlers) deleteCOAFile(c *gin.Context) {
	coa, err := h.coas.DeleteFile(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coa)
}

// viewCOA renders the certificate viewer page.
func (h *handlers) viewCOA(c *gin.Context) {
	code := c.Param("code")
	coa, err := h.coas.GetCOAByID(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}

	doc := viewer.Document{Code: code}
	switch {
	case coa != nil:
		doc.Code = coa.CoaID
		doc.Title = fmt.Sprintf("%s %s", coa.CoaID, coa.Compound)
		doc.FileURL = coa.FileURL
	case h.site != nil:
		sample, ok := h.site.Lookup(code)
		if !ok {
			writeError(c, fmt.Errorf("coa %s: %w", code, service.ErrNotFound))
			return
		}
		doc.Code = sample.Code
		doc.Title = fmt.Sprintf("%s %s", sample.Code, sample.Compound)
		doc.FileURL = sample.FileURL
	default:
		writeError(c, fmt.Errorf("coa %s: %w", code, service.ErrNotFound))
		return
	}

	var buf bytes.Buffer
	if err := h.viewer.Render(&buf, doc); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
