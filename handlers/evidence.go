package handlers

import (
	"mime"
	"net/http"

	"cyber_case_app_go/models"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// UploadEvidence ingests one multipart file into a case
func (h *Handler) UploadEvidence(c echo.Context) error {
	fileType := c.FormValue("file_type")
	if fileType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_type is required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded file")
	}
	defer src.Close()

	ev, err := h.Vault.Ingest(c.Request().Context(), actorFrom(c), services.IngestRequest{
		CaseID:   c.Param("case_id"),
		FileType: fileType,
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  src,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, ev)
}

// ListEvidence lists the evidence metadata of a case
func (h *Handler) ListEvidence(c echo.Context) error {
	files, err := h.Vault.ListForCase(actorFrom(c), c.Param("case_id"))
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusOK, files)
}

// DownloadEvidence returns verified plaintext as an attachment
func (h *Handler) DownloadEvidence(c echo.Context) error {
	return h.serveEvidence(c, models.AuditActionDownloadEvidence, "attachment")
}

// ViewEvidence returns verified plaintext for inline display
func (h *Handler) ViewEvidence(c echo.Context) error {
	return h.serveEvidence(c, models.AuditActionViewEvidence, "inline")
}

func (h *Handler) serveEvidence(c echo.Context, action models.AuditAction, disposition string) error {
	rec, err := h.Vault.Retrieve(c.Request().Context(), actorFrom(c), c.Param("id"), action)
	if err != nil {
		return h.fail(err, "Evidence not found")
	}
	setDisposition(c, disposition, rec.Evidence.OriginalFilename)
	return c.Blob(http.StatusOK, rec.MediaType, rec.Content)
}

func setDisposition(c echo.Context, disposition, filename string) {
	value := mime.FormatMediaType(disposition, map[string]string{"filename": filename})
	if value == "" {
		value = disposition
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, value)
}

type verificationRequest struct {
	Status string `json:"status"`
}

// UpdateEvidenceVerification marks pending evidence verified or rejected
func (h *Handler) UpdateEvidenceVerification(c echo.Context) error {
	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Status == "" {
		req.Status = c.QueryParam("status")
	}

	ev, err := h.Vault.UpdateVerification(actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		return h.fail(err, "Evidence not found")
	}
	return c.JSON(http.StatusOK, ev)
}
