package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	dbutil "github.com/destinyrisingdb/artifactdb/internal/db"
	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// SortKey selects the artifact search sort column.
type SortKey string

// SortKey values.
const (
	SortByName        SortKey = "name"
	SortBySlot        SortKey = "slot"
	SortByUpdated     SortKey = "updated"
	SortBySubmissions SortKey = "submissions"
)

// SortOrder selects ascending or descending order.
type SortOrder string

// SortOrder values.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultPageLimit is the page size used when the client sends none.
const DefaultPageLimit = 20

// SearchFilters is the parsed filter set for an artifact search. Nil pointer
// fields mean "no constraint".
type SearchFilters struct {
	Slot             *int      // Exact slot match.
	Verified         *bool     // Exact verified match.
	Search           string    // Substring match on name or description.
	HasSetEffects    bool      // Restrict to artifacts with any tier bonus text.
	HasRollableStats bool      // Restrict to artifacts with at least one stat row.
	SortBy           SortKey   // Sort column, defaults to name.
	SortOrder        SortOrder // Sort direction, defaults to asc.
	Page             int       // 1-based page number.
	Limit            int       // Page size.
}

// ParseSearchFilters builds filters from request query values.
//
// Parsing is deliberately lenient: unknown sortBy/sortOrder values fall back
// to the defaults, and numeric values that fail to parse are treated as if
// the parameter were absent. Bad query params must never widen or crash a
// search.
func ParseSearchFilters(query url.Values) SearchFilters {
	filters := SearchFilters{
		Search:    strings.TrimSpace(query.Get("search")),
		SortBy:    SortByName,
		SortOrder: SortAsc,
		Page:      1,
		Limit:     DefaultPageLimit,
	}

	if raw := strings.TrimSpace(query.Get("slot")); raw != "" {
		if slot, errParse := strconv.Atoi(raw); errParse == nil {
			filters.Slot = &slot
		}
	}
	if raw := strings.TrimSpace(query.Get("verified")); raw != "" {
		verified := raw == "true" || raw == "1"
		filters.Verified = &verified
	}
	filters.HasSetEffects = query.Get("hasSetEffects") == "true"
	filters.HasRollableStats = query.Get("hasRollableStats") == "true"

	switch SortKey(query.Get("sortBy")) {
	case SortBySlot:
		filters.SortBy = SortBySlot
	case SortByUpdated:
		filters.SortBy = SortByUpdated
	case SortBySubmissions:
		filters.SortBy = SortBySubmissions
	}
	if SortOrder(query.Get("sortOrder")) == SortDesc {
		filters.SortOrder = SortDesc
	}

	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		if page, errParse := strconv.Atoi(raw); errParse == nil && page >= 1 {
			filters.Page = page
		}
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if limit, errParse := strconv.Atoi(raw); errParse == nil && limit >= 1 {
			filters.Limit = limit
		}
	}

	return filters
}

// SearchResult is one page of artifacts plus pagination metadata computed
// from the same predicate.
type SearchResult struct {
	Artifacts  []models.Artifact
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// anySetEffectExpr matches artifacts with at least one non-empty tier field.
const anySetEffectExpr = "(" +
	"set_effect_1pc IS NOT NULL AND set_effect_1pc != '' OR " +
	"set_effect_2pc IS NOT NULL AND set_effect_2pc != '' OR " +
	"set_effect_3pc IS NOT NULL AND set_effect_3pc != '' OR " +
	"set_effect_4pc IS NOT NULL AND set_effect_4pc != '' OR " +
	"set_effect_5pc IS NOT NULL AND set_effect_5pc != ''" +
	")"

// hasStatsExpr is a semi-join on the stats table. Keeping this in the shared
// predicate means the count and the page can never disagree about it.
const hasStatsExpr = "EXISTS (SELECT 1 FROM rollable_stats WHERE rollable_stats.artifact_id = artifacts.id)"

// SearchArtifacts returns one page of artifacts and the total row count for
// the same predicate. Stats are preloaded on every returned artifact.
func SearchArtifacts(ctx context.Context, conn *gorm.DB, filters SearchFilters) (*SearchResult, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = DefaultPageLimit
	}

	// Both queries are built from the same closure so pagination metadata
	// always matches the page contents.
	base := func() *gorm.DB {
		q := conn.WithContext(ctx).Model(&models.Artifact{})
		if filters.Slot != nil {
			q = q.Where("slot = ?", *filters.Slot)
		}
		if filters.Verified != nil {
			q = q.Where("verified = ?", *filters.Verified)
		}
		if filters.Search != "" {
			pattern := dbutil.NormalizeLikePattern(conn, "%"+filters.Search+"%")
			q = q.Where(
				conn.Where(dbutil.CaseInsensitiveLikeExpr(conn, "name"), pattern).
					Or(dbutil.CaseInsensitiveLikeExpr(conn, "description"), pattern),
			)
		}
		if filters.HasSetEffects {
			q = q.Where(anySetEffectExpr)
		}
		if filters.HasRollableStats {
			q = q.Where(hasStatsExpr)
		}
		return q
	}

	var total int64
	if errCount := base().Count(&total).Error; errCount != nil {
		return nil, fmt.Errorf("catalog: count artifacts: %w", errCount)
	}

	var rows []models.Artifact
	offset := (filters.Page - 1) * filters.Limit
	if errFind := base().
		Preload("RollableStats", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Order(orderClause(filters)).
		Order("id ASC").
		Limit(filters.Limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: search artifacts: %w", errFind)
	}

	totalPages := int((total + int64(filters.Limit) - 1) / int64(filters.Limit))
	return &SearchResult{
		Artifacts:  rows,
		Total:      total,
		Page:       filters.Page,
		Limit:      filters.Limit,
		TotalPages: totalPages,
	}, nil
}

// orderClause maps the sort key and direction to a SQL ORDER BY term.
func orderClause(filters SearchFilters) string {
	column := "name"
	switch filters.SortBy {
	case SortBySlot:
		column = "slot"
	case SortByUpdated:
		column = "updated_at"
	case SortBySubmissions:
		column = "submission_count"
	}
	direction := "ASC"
	if filters.SortOrder == SortDesc {
		direction = "DESC"
	}
	return column + " " + direction
}
