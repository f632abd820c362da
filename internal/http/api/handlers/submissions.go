package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/catalog"
	"github.com/destinyrisingdb/artifactdb/internal/models"
	"github.com/destinyrisingdb/artifactdb/internal/storage"
)

// SubmissionHandler serves the community submission and moderation endpoints.
type SubmissionHandler struct {
	db         *gorm.DB            // Database handle for listings.
	moderation *catalog.Moderation // Submission lifecycle service.
	store      storage.Store       // Evidence blob store.
}

// NewSubmissionHandler wires a submission handler with its dependencies.
func NewSubmissionHandler(db *gorm.DB, moderation *catalog.Moderation, store storage.Store) *SubmissionHandler {
	return &SubmissionHandler{db: db, moderation: moderation, store: store}
}

// List returns submissions filtered by status and artifact, with per-status
// totals for the review dashboard.
func (h *SubmissionHandler) List(c *gin.Context) {
	filters := catalog.SubmissionFilters{Page: 1, Limit: catalog.DefaultPageLimit}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.SubmissionStatus(raw)
		filters.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("artifactId")); raw != "" {
		if id, errParse := strconv.ParseUint(raw, 10, 64); errParse == nil {
			filters.ArtifactID = &id
		}
	}
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		if page, errParse := strconv.Atoi(raw); errParse == nil && page >= 1 {
			filters.Page = page
		}
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, errParse := strconv.Atoi(raw); errParse == nil && limit >= 1 {
			filters.Limit = limit
		}
	}

	page, errList := catalog.ListSubmissions(c.Request.Context(), h.db, filters)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch submissions"})
		return
	}

	submissions := make([]gin.H, 0, len(page.Submissions))
	for i := range page.Submissions {
		submissions = append(submissions, formatSubmission(&page.Submissions[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"total":       page.Total,
		"page":        page.Page,
		"limit":       page.Limit,
		"totalPages":  page.TotalPages,
		"metadata": gin.H{
			"totalSubmissions":    page.Total,
			"pendingSubmissions":  page.StatusCounts[models.SubmissionStatusPending],
			"approvedSubmissions": page.StatusCounts[models.SubmissionStatusApproved],
			"rejectedSubmissions": page.StatusCounts[models.SubmissionStatusRejected],
		},
	})
}

// createSubmissionRequest is the JSON `data` field of the multipart intake.
type createSubmissionRequest struct {
	ArtifactID    uint64 `json:"artifactId"`
	SubmitterInfo *struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Anonymous bool   `json:"anonymous"`
	} `json:"submitterInfo"`
	SubmissionData *models.SubmissionPayload `json:"submissionData"`
	Evidence       *struct {
		Notes    string `json:"notes"`
		VideoURL string `json:"videoUrl"`
	} `json:"evidence"`
}

// Create handles submission intake: validates the target artifact, stores
// evidence files and inserts a pending submission.
func (h *SubmissionHandler) Create(c *gin.Context) {
	data := c.PostForm("data")
	if strings.TrimSpace(data) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing submission data"})
		return
	}
	var body createSubmissionRequest
	if errDecode := json.Unmarshal([]byte(data), &body); errDecode != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission data"})
		return
	}
	if body.ArtifactID == 0 || body.SubmissionData == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	// Existence check before any upload so a bad artifact id cannot strand
	// evidence objects in the blob store.
	exists, errExists := catalog.ArtifactExists(c.Request.Context(), h.db, body.ArtifactID)
	if errExists != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create submission"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}

	files, skipped, errUpload := h.storeEvidence(c)
	if errUpload != nil {
		if errors.Is(errUpload, storage.ErrFileTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "evidence file too large"})
			return
		}
		log.WithError(errUpload).Warn("submission intake: evidence upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store evidence files"})
		return
	}

	params := catalog.CreateSubmissionParams{
		ArtifactID:    body.ArtifactID,
		Payload:       *body.SubmissionData,
		EvidenceFiles: files,
	}
	if body.SubmitterInfo != nil {
		params.SubmitterName = body.SubmitterInfo.Username
		params.SubmitterContact = body.SubmitterInfo.Email
		params.Anonymous = body.SubmitterInfo.Anonymous
	}
	if body.Evidence != nil {
		params.EvidenceNotes = body.Evidence.Notes
		params.EvidenceVideoURL = body.Evidence.VideoURL
	}

	submissionID, errCreate := h.moderation.CreateSubmission(c.Request.Context(), params)
	if errCreate != nil {
		switch {
		case errors.Is(errCreate, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		case errors.Is(errCreate, catalog.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create submission"})
		}
		return
	}

	response := gin.H{
		"success":      true,
		"submissionId": submissionID,
		"message":      "Submission created successfully",
	}
	if skipped > 0 {
		response["skippedFiles"] = skipped
	}
	c.JSON(http.StatusCreated, response)
}

// storeEvidence uploads the multipart `files` entries. Zero-size files are
// skipped; any transport failure aborts the whole intake.
func (h *SubmissionHandler) storeEvidence(c *gin.Context) ([]models.EvidenceFile, int, error) {
	form, errForm := c.MultipartForm()
	if errForm != nil || form == nil {
		return nil, 0, nil
	}

	skipped := 0
	stored := make([]models.EvidenceFile, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		if header.Size == 0 {
			skipped++
			continue
		}
		src, errOpen := header.Open()
		if errOpen != nil {
			return nil, skipped, errOpen
		}
		file, errSave := h.store.Save(
			c.Request.Context(),
			header.Filename,
			header.Header.Get("Content-Type"),
			header.Size,
			src,
		)
		_ = src.Close()
		if errSave != nil {
			return nil, skipped, errSave
		}
		stored = append(stored, models.EvidenceFile{
			Name: file.Name,
			URL:  file.URL,
			Size: file.Size,
			Type: file.Type,
		})
	}
	return stored, skipped, nil
}

// reviewSubmissionRequest is the admin decision payload.
type reviewSubmissionRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
	ReviewedBy string `json:"reviewedBy"`
}

// Review applies a moderation decision to one submission.
func (h *SubmissionHandler) Review(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body reviewSubmissionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	submission, errReview := h.moderation.Review(c.Request.Context(), id, catalog.ReviewDecision{
		Status:     models.SubmissionStatus(body.Status),
		AdminNotes: body.AdminNotes,
		ReviewedBy: body.ReviewedBy,
	})
	if errReview != nil {
		switch {
		case errors.Is(errReview, catalog.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": errReview.Error()})
		case errors.Is(errReview, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update submission"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": formatSubmission(submission),
	})
}

// Delete removes one submission.
func (h *SubmissionHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if errDelete := h.moderation.Delete(c.Request.Context(), id); errDelete != nil {
		if errors.Is(errDelete, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submission deleted successfully",
	})
}

// formatSubmission maps a submission model into its response payload.
func formatSubmission(submission *models.ArtifactSubmission) gin.H {
	payload, errPayload := catalog.DecodePayload(submission)
	if errPayload != nil {
		payload = models.SubmissionPayload{}
	}
	files, errFiles := catalog.DecodeEvidenceFiles(submission)
	if errFiles != nil {
		files = nil
	}
	if files == nil {
		files = []models.EvidenceFile{}
	}

	item := gin.H{
		"id":         submission.ID,
		"artifactId": submission.ArtifactID,
		"submitterInfo": gin.H{
			"username":  textOrEmpty(submission.SubmitterName),
			"email":     textOrEmpty(submission.SubmitterContact),
			"anonymous": submission.SubmitterName == nil,
		},
		"submissionData": payload,
		"evidence": gin.H{
			"notes":    textOrEmpty(submission.EvidenceNotes),
			"videoUrl": textOrEmpty(submission.EvidenceVideoURL),
			"files":    files,
		},
		"status":     submission.Status,
		"adminNotes": textOrEmpty(submission.AdminNotes),
		"metadata": gin.H{
			"submittedAt": submission.CreatedAt,
			"reviewedAt":  submission.ReviewedAt,
			"reviewedBy":  textOrEmpty(submission.ReviewedBy),
		},
	}
	if submission.Artifact.ID != 0 {
		item["artifactName"] = submission.Artifact.Name
		item["artifactSlot"] = submission.Artifact.Slot
	}
	return item
}
