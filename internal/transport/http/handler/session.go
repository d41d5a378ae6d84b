package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quizmint/internal/app"
	"quizmint/internal/pkg/pdfextract"
	"quizmint/internal/transport/http/middleware"
	"quizmint/internal/transport/http/response"
)

type SessionHandler struct {
	studyService *app.StudyService
	maxPDFSize   int64
}

type CreateSessionRequest struct {
	Age        int    `json:"age" binding:"required,gt=0"`
	Difficulty string `json:"difficulty" binding:"required,oneof=easy medium hard"`
}

func NewSessionHandler(studyService *app.StudyService, maxPDFSize int64) *SessionHandler {
	if maxPDFSize <= 0 {
		maxPDFSize = 10 << 20
	}
	return &SessionHandler{studyService: studyService, maxPDFSize: maxPDFSize}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.studyService.CreateSession(c.Request.Context(), app.CreateSessionInput{
		Age:        req.Age,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		}
		return
	}

	response.OK(c, session)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil || sessionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	session, err := h.studyService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get session failed")
		}
		return
	}

	response.OK(c, session)
}

func (h *SessionHandler) ListFlashcards(c *gin.Context) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil || sessionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	cards, err := h.studyService.ListFlashcards(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list flashcards failed")
		}
		return
	}

	response.OK(c, cards)
}

func (h *SessionHandler) ListExtractionEvents(c *gin.Context) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil || sessionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	events, err := h.studyService.ListExtractionEvents(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list extraction events failed")
		}
		return
	}

	response.OK(c, events)
}

// UploadPDF accepts a multipart form with "file", runs the extraction
// pipeline, and returns the extracted text plus the session's accumulated
// flashcards.
func (h *SessionHandler) UploadPDF(c *gin.Context) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil || sessionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	start := time.Now()
	result, err := h.studyService.ExtractAndSave(c.Request.Context(), sessionID, data)
	if err != nil {
		switch {
		case errors.Is(err, pdfextract.ErrInvalidPDF):
			middleware.RecordExtraction("parse_error", time.Since(start))
			response.Error(c, http.StatusBadRequest, response.CodeInvalidPDF, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		case errors.Is(err, app.ErrUploadInFlight), errors.Is(err, app.ErrStaleUpload):
			middleware.RecordExtraction("conflict", time.Since(start))
			response.Error(c, http.StatusConflict, response.CodeUploadConflict, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			middleware.RecordExtraction("store_error", time.Since(start))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "extract and save failed")
		}
		return
	}

	middleware.RecordExtraction("success", time.Since(start))
	response.OK(c, result)
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}
