package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/catalog"
	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// ArtifactHandler serves the artifact search, detail and admin update
// endpoints.
type ArtifactHandler struct {
	db *gorm.DB // Database handle for artifact queries.
}

// NewArtifactHandler wires an artifact handler with its database dependency.
func NewArtifactHandler(db *gorm.DB) *ArtifactHandler {
	return &ArtifactHandler{db: db}
}

// List runs a filtered, sorted, paginated artifact search.
func (h *ArtifactHandler) List(c *gin.Context) {
	filters := catalog.ParseSearchFilters(c.Request.URL.Query())

	result, errSearch := catalog.SearchArtifacts(c.Request.Context(), h.db, filters)
	if errSearch != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch artifacts"})
		return
	}

	artifacts := make([]gin.H, 0, len(result.Artifacts))
	for i := range result.Artifacts {
		artifacts = append(artifacts, formatArtifact(&result.Artifacts[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"artifacts":  artifacts,
		"total":      result.Total,
		"page":       result.Page,
		"limit":      result.Limit,
		"totalPages": result.TotalPages,
		"filters":    formatFilters(filters),
	})
}

// Get returns one artifact with its related submissions.
func (h *ArtifactHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	detail, errGet := catalog.GetArtifact(c.Request.Context(), h.db, id)
	if errGet != nil {
		if errors.Is(errGet, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch artifact"})
		return
	}

	related := make([]gin.H, 0, len(detail.Submissions))
	for i := range detail.Submissions {
		related = append(related, formatSubmission(&detail.Submissions[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"artifact":           formatArtifact(&detail.Artifact),
		"relatedSubmissions": related,
		"submissionCount":    detail.SubmissionTotal,
	})
}

// statListRequest is the wire shape of a full stat replacement.
type statListRequest struct {
	PrimaryStats   []models.SubmissionStat `json:"primaryStats"`
	SecondaryStats []models.SubmissionStat `json:"secondaryStats"`
}

// artifactUpdatesRequest carries optional admin edits. Pointer fields
// distinguish "leave alone" from "set to this value".
type artifactUpdatesRequest struct {
	Name        *string                      `json:"name"`
	Description *string                      `json:"description"`
	Slot        *int                         `json:"slot"`
	SetEffects  *models.SubmissionSetEffects `json:"setEffects"`
	Metadata    *struct {
		Verified        *bool `json:"verified"`
		SubmissionCount *int  `json:"submissionCount"`
	} `json:"metadata"`
	RollableAttributes *statListRequest `json:"rollableAttributes"`
}

// updateArtifactRequest is the admin update envelope.
type updateArtifactRequest struct {
	ArtifactID uint64                  `json:"artifactId"`
	Updates    *artifactUpdatesRequest `json:"updates"`
}

// Update applies admin edits to one artifact.
func (h *ArtifactHandler) Update(c *gin.Context) {
	var body updateArtifactRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ArtifactID == 0 || body.Updates == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing artifactId or updates"})
		return
	}

	patch := catalog.ArtifactPatch{
		Name:        body.Updates.Name,
		Description: body.Updates.Description,
		Slot:        body.Updates.Slot,
		SetEffects:  body.Updates.SetEffects,
	}
	if body.Updates.Metadata != nil {
		patch.Verified = body.Updates.Metadata.Verified
		patch.SubmissionCount = body.Updates.Metadata.SubmissionCount
	}
	if body.Updates.RollableAttributes != nil {
		patch.RollableStats = &catalog.StatList{
			Primary:   body.Updates.RollableAttributes.PrimaryStats,
			Secondary: body.Updates.RollableAttributes.SecondaryStats,
		}
	}

	artifact, errUpdate := catalog.UpdateArtifact(c.Request.Context(), h.db, body.ArtifactID, patch)
	if errUpdate != nil {
		switch {
		case errors.Is(errUpdate, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		case errors.Is(errUpdate, catalog.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": errUpdate.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update artifact"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"artifact": formatArtifact(artifact),
	})
}

// formatArtifact maps an artifact model into its response payload, with
// stats partitioned by attribute group.
func formatArtifact(artifact *models.Artifact) gin.H {
	primary := make([]gin.H, 0)
	secondary := make([]gin.H, 0)
	for i := range artifact.RollableStats {
		stat := &artifact.RollableStats[i]
		formatted := gin.H{
			"id":        stat.ID,
			"name":      stat.Name,
			"minValue":  stat.MinValue,
			"maxValue":  stat.MaxValue,
			"type":      stat.StatType,
			"valueKind": stat.ValueKind,
			"rarity":    stat.Rarity,
		}
		if stat.StatType == models.StatTypeSecondary {
			secondary = append(secondary, formatted)
		} else {
			primary = append(primary, formatted)
		}
	}

	return gin.H{
		"id":          artifact.ID,
		"name":        artifact.Name,
		"description": textOrEmpty(artifact.Description),
		"slot":        artifact.Slot,
		"setEffects": gin.H{
			"effect1": textOrEmpty(artifact.SetEffect1pc),
			"effect2": textOrEmpty(artifact.SetEffect2pc),
			"effect3": textOrEmpty(artifact.SetEffect3pc),
			"effect4": textOrEmpty(artifact.SetEffect4pc),
			"effect5": textOrEmpty(artifact.SetEffect5pc),
		},
		"rollableAttributes": gin.H{
			"primaryStats":   primary,
			"secondaryStats": secondary,
		},
		"metadata": gin.H{
			"verified":        artifact.Verified,
			"submissionCount": artifact.SubmissionCount,
			"createdAt":       artifact.CreatedAt,
			"updatedAt":       artifact.UpdatedAt,
		},
	}
}

// formatFilters echoes the filters actually applied after lenient parsing.
func formatFilters(filters catalog.SearchFilters) gin.H {
	out := gin.H{
		"search":           filters.Search,
		"hasSetEffects":    filters.HasSetEffects,
		"hasRollableStats": filters.HasRollableStats,
		"sortBy":           filters.SortBy,
		"sortOrder":        filters.SortOrder,
	}
	if filters.Slot != nil {
		out["slot"] = *filters.Slot
	}
	if filters.Verified != nil {
		out["verified"] = *filters.Verified
	}
	return out
}

// textOrEmpty flattens nullable text for responses.
func textOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
