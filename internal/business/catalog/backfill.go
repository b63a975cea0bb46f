package catalog

import (
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/model"
	"github.com/jbaylocal/marketplace-api/pkg/util"
)

// Backfill returns the field writes that bring a stored listing up to the
// shape the list queries rely on: explicit isActive, featured, views and
// _createdAt, plus cleaned title and description. An empty map means the
// document is already complete.
func Backfill(raw model.RawListing, createTime time.Time) map[string]any {
	patch := make(map[string]any)

	if _, ok := raw["isActive"].(bool); !ok {
		patch["isActive"] = boolField(raw["isActive"], true)
	}
	if _, ok := raw["featured"].(bool); !ok {
		patch["featured"] = boolField(raw["featured"], false)
	}
	if _, ok := raw["views"]; !ok {
		patch["views"] = int64(0)
	} else if v, ok := numberField(raw["views"]); !ok || v < 0 {
		patch["views"] = int64(0)
	}
	if _, ok := raw["_createdAt"]; !ok && !createTime.IsZero() {
		patch["_createdAt"] = createTime.UTC()
	}

	for _, field := range []string{"title", "description"} {
		s, ok := raw[field].(string)
		if ok && util.NeedsCleaning(s) {
			patch[field] = util.CleanText(s)
		}
	}
	return patch
}
