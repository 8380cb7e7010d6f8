package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"stemsep/config"
	"stemsep/demucs"
	"stemsep/job"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrUploadTooLarge marks uploads rejected for exceeding MAX_UPLOAD_SIZE.
var ErrUploadTooLarge = errors.New("upload exceeds the size limit")

type Handler struct {
	processor *job.Processor
	cfg       *config.Config
}

func NewHandler(p *job.Processor, cfg *config.Config) *Handler {
	return &Handler{
		processor: p,
		cfg:       cfg,
	}
}

func (h *Handler) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", pageData{})
}

// handleSeparate accepts one multipart upload, runs the whole separation
// synchronously, and renders the page again with either the two players or
// an error message. The request blocks for the full run.
func (h *Handler) handleSeparate(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.HTML(http.StatusBadRequest, "index", pageData{Messages: []string{"No file uploaded."}})
		return
	}

	uploadPath, err := h.saveUpload(fileHeader)
	if err != nil {
		if markers.Is(err, ErrUploadTooLarge) {
			msg := fmt.Sprintf("File is too large, the limit is %d bytes.", h.cfg.MaxUploadSize)
			c.HTML(http.StatusRequestEntityTooLarge, "index", pageData{Messages: []string{msg}})
			return
		}
		c.HTML(http.StatusInternalServerError, "index", pageData{Messages: []string{"Could not store the upload."}})
		return
	}
	// The upload is only needed for the run itself.
	defer os.Remove(uploadPath)

	j, err := h.processor.Separate(c.Request.Context(), uploadPath)
	if err != nil {
		msg, status := describeFailure(err)
		c.HTML(status, "index", pageData{Messages: []string{msg}})
		return
	}

	vocalsRel, err := filepath.Rel(h.cfg.ResultsDir, j.Vocals)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "index", pageData{Messages: []string{"Could not build result links."}})
		return
	}
	instRel, err := filepath.Rel(h.cfg.ResultsDir, j.Instrumental)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "index", pageData{Messages: []string{"Could not build result links."}})
		return
	}

	c.HTML(http.StatusOK, "index", pageData{
		VocalsURL:       h.resultURL(vocalsRel),
		InstrumentalURL: h.resultURL(instRel),
	})
}

// handleResult serves one published file by its path relative to the
// results root.
func (h *Handler) handleResult(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	full, err := h.processor.ResolveResult(rel)
	if err != nil {
		if markers.Is(err, job.ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(full)
}

// saveUpload stores the upload under a random name in the uploads
// directory, enforcing the configured size limit while copying so an
// oversized body is never fully written to disk.
func (h *Handler) saveUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", errors.Wrap(err, "could not open upload")
	}
	defer src.Close()

	name := strings.ReplaceAll(uuid.New().String(), "-", "") + filepath.Ext(fileHeader.Filename)
	dst := filepath.Join(h.cfg.UploadsDir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrap(err, "could not create upload file")
	}

	limited := &io.LimitedReader{R: src, N: h.cfg.MaxUploadSize + 1}
	written, err := io.Copy(out, limited)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return "", errors.Wrap(err, "could not write upload file")
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", errors.Wrap(err, "could not flush upload file")
	}
	if written > h.cfg.MaxUploadSize {
		os.Remove(dst)
		return "", errors.Mark(
			errors.Newf("upload of %d+ bytes exceeds limit of %d", written, h.cfg.MaxUploadSize),
			ErrUploadTooLarge,
		)
	}

	return dst, nil
}

func (h *Handler) resultURL(rel string) string {
	base := strings.TrimSuffix(h.cfg.BaseURL, "/")
	return base + "/results/" + filepath.ToSlash(rel)
}

// describeFailure maps a pipeline error to the message shown on the page
// and the response status. Each failure class gets its own message so a
// locate failure is distinguishable from a classification one.
func describeFailure(err error) (string, int) {
	switch {
	case markers.Is(err, job.ErrThrottled):
		return "Server is busy, try again shortly.", http.StatusServiceUnavailable
	case markers.Is(err, demucs.ErrOutputNotFound):
		return "Could not locate the separation output folder.", http.StatusInternalServerError
	case markers.Is(err, demucs.ErrNoVocals):
		return "Could not find a vocals file in the separation output.", http.StatusInternalServerError
	case markers.Is(err, demucs.ErrNoInstrumental):
		return "Could not find an instrumental file in the separation output.", http.StatusInternalServerError
	}

	if code := demucs.ExitCode(err); code >= 0 {
		msg := fmt.Sprintf("Separation failed (exit code %d). See the server log for the tool output.", code)
		return msg, http.StatusInternalServerError
	}
	return "Separation failed: " + err.Error(), http.StatusInternalServerError
}
