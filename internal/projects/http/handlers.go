package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

func (h *Handler) generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)

	req, err := h.readGenerateForm(c)
	if err != nil {
		h.fail(c, "generate", err)
		return
	}
	if req.GenerationID == "" {
		req.GenerationID = uuid.New().String()
	}
	c.Header(generationIDHeader, req.GenerationID)

	res, err := h.gen.Generate(c.Request.Context(), req)
	if err != nil {
		h.failWith(c, "generate", err, gin.H{"generation_id": req.GenerationID})
		return
	}

	p := res.Project
	c.JSON(http.StatusOK, generateResponse{
		ProjectID:    p.ID,
		GenerationID: res.GenerationID,
		Name:         p.Name,
		Framework:    string(p.Framework),
		HTML:         p.Artifacts.HTML,
		CSS:          p.Artifacts.CSS,
		JS:           p.Artifacts.JS,
		Shared:       res.Shared,
	})
}

func (h *Handler) readGenerateForm(c *gin.Context) (domain.GenerationRequest, error) {
	var req domain.GenerationRequest

	err := c.Request.ParseMultipartForm(h.maxUpload + multipartOverhead)
	if errors.Is(err, http.ErrNotMultipart) {
		err = c.Request.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("%w: limit is %d bytes", domain.ErrSizeExceeded, h.maxUpload)
		}
		return req, fmt.Errorf("%w: malformed form: %v", domain.ErrValidation, err)
	}

	fw, err := domain.ParseFramework(c.PostForm("framework"))
	if err != nil {
		return req, err
	}
	req.Framework = fw
	req.ProjectName = c.PostForm("projectName")
	req.ImageURL = strings.TrimSpace(c.PostForm("imageUrl"))
	if id := strings.TrimSpace(c.PostForm("generationId")); id != "" {
		if !domain.ValidID(id) {
			return req, fmt.Errorf("%w: generationId must be a lowercase uuid", domain.ErrValidation)
		}
		req.GenerationID = id
	}

	for _, f := range []struct {
		field string
		dst   *bool
	}{
		{"responsive", &req.Options.Responsive},
		{"animations", &req.Options.Animations},
		{"darkMode", &req.Options.DarkMode},
	} {
		v, err := formBool(c.PostForm(f.field))
		if err != nil {
			return req, fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, f.field)
		}
		*f.dst = v
	}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if req.ImageURL == "" {
			return req, fmt.Errorf("%w: no image provided", domain.ErrValidation)
		}
		return req, nil
	case err != nil:
		return req, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if fh.Filename == "" {
		return req, fmt.Errorf("%w: no image selected", domain.ErrValidation)
	}
	if fh.Size > h.maxUpload {
		return req, fmt.Errorf("%w: %d bytes, limit is %d", domain.ErrSizeExceeded, fh.Size, h.maxUpload)
	}

	data, err := readFormFile(fh)
	if err != nil {
		return req, err
	}
	req.Image = data
	req.ImageName = fh.Filename
	return req, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", domain.ErrValidation, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", domain.ErrValidation, err)
	}
	return data, nil
}

// formBool accepts the values HTML checkboxes and JS clients send.
func formBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return false, nil
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}

func (h *Handler) generationStatus(c *gin.Context) {
	g, err := h.gen.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "generation_status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generation": g})
}

func (h *Handler) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	items, err := h.projects.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) getProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *Handler) saveProject(c *gin.Context) {
	var body saveReq
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	req, err := body.toUpdate()
	if err != nil {
		h.fail(c, "save_project", err)
		return
	}

	p, err := h.projects.Save(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, "save_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *Handler) duplicateProject(c *gin.Context) {
	p, err := h.projects.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "duplicate_project", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) exportProject(c *gin.Context) {
	a, err := h.projects.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "export_project", err)
		return
	}

	cache := "miss"
	if a.Cached {
		cache = "hit"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	c.Header("X-Export-Cache", cache)
	c.Data(http.StatusOK, "application/zip", a.Data)
}

func (h *Handler) sourceImage(c *gin.Context) {
	data, mediaType, err := h.projects.SourceImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "source_image", err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, mediaType, data)
}
