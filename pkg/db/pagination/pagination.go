package pagination

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Pagination binds the list-query knobs shared by ledger endpoints.
type Pagination struct {
	SortBy    string `form:"sortBy" json:"sortBy"`
	SortOrder string `form:"sortOrder" json:"sortOrder"`
	Limit     int    `form:"limit" json:"limit"`
	Skip      int    `form:"skip" json:"skip"`
}

// PageInfo reports the window returned together with the total row count.
type PageInfo struct {
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
	Skip  int   `json:"skip"`
}

// Normalize clamps the window and falls back to the given sort column when
// the requested one is not allowed. Allowed columns are an allowlist: sort
// input reaches SQL identifiers, so unknown columns never pass through.
func (p Pagination) Normalize(defaultSort string, allowed map[string]bool) Pagination {
	out := p
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	} else if out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	if out.Skip < 0 {
		out.Skip = 0
	}
	sortBy := strings.TrimSpace(out.SortBy)
	if sortBy == "" || !allowed[sortBy] {
		sortBy = defaultSort
	}
	out.SortBy = sortBy
	if strings.EqualFold(strings.TrimSpace(out.SortOrder), "desc") {
		out.SortOrder = "DESC"
	} else {
		out.SortOrder = "ASC"
	}
	return out
}

// Apply adds ordering and the limit/skip window to the query. Callers must
// pass a Pagination that went through Normalize.
func (p Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(p.SortBy + " " + p.SortOrder).Limit(p.Limit).Offset(p.Skip)
}
