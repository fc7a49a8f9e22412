package courses

import (
	"strings"

	"github.com/nzci/enrolbridge/internal/pkg/config"
)

// Resolver maps Gumroad product permalinks to EdApp course IDs and prices to
// tier labels. Both lookups are total and side-effect free. The tier label is
// cosmetic only and deliberately independent of the course mapping; a price
// and a mapped course can disagree and that is not an error.
type Resolver struct {
	courseMap     map[string]string
	priceTiers    map[int]string
	defaultCourse string
}

func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		courseMap:     cfg.CourseMap,
		priceTiers:    cfg.PriceTiers,
		defaultCourse: cfg.DefaultCourse,
	}
}

// Resolve returns the course ID for a product permalink. Unknown permalinks
// resolve to the configured default course, never to an error.
func (r *Resolver) Resolve(productID string) string {
	if courseID, ok := r.courseMap[strings.TrimSpace(productID)]; ok {
		return courseID
	}
	return r.defaultCourse
}

// ClassifyPrice maps a price in cents to a tier label, "Standard" when the
// whole-dollar amount has no tier entry.
func (r *Resolver) ClassifyPrice(priceCents int) string {
	if tier, ok := r.priceTiers[priceCents/100]; ok {
		return tier
	}
	return "Standard"
}
