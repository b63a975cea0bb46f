package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jbaylocal/marketplace-api/internal/business/session"
	"github.com/jbaylocal/marketplace-api/pkg/model"
)

func locationResponse(s *session.Session, loc *model.Coordinate, warning string) gin.H {
	resp := gin.H{"location": loc}
	if loc != nil {
		resp["withinServiceArea"] = s.Location.IsWithinServiceArea(*loc)
	}
	if warning != "" {
		resp["warning"] = warning
	}
	return resp
}

func (r *Router) getLocation(c *gin.Context) {
	s := currentSession(c)
	c.JSON(http.StatusOK, locationResponse(s, s.Location.Current(), ""))
}

// manualLocationReq accepts lat/lng as JSON numbers or as the raw text of a form field.
type manualLocationReq struct {
	Lat json.RawMessage `json:"lat"`
	Lng json.RawMessage `json:"lng"`
}

func rawText(m json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(m)), `"`)
}

func (r *Router) setLocation(c *gin.Context) {
	var req manualLocationReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	s := r.retainSession(c)
	loc, err := s.Location.SetManualText(c.Request.Context(), rawText(req.Lat), rawText(req.Lng))
	warning, err := persistenceWarning(err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, locationResponse(s, &loc, warning))
}

func (r *Router) clearLocation(c *gin.Context) {
	s := r.retainSession(c)
	warning, err := persistenceWarning(s.Location.Clear(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, locationResponse(s, nil, warning))
}

// deviceLocationReq carries what the browser's geolocation call produced:
// a position, or a W3C error code. An empty body asks the server to locate
// the caller itself.
type deviceLocationReq struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Code int      `json:"code"`
}

func (r *Router) acquireDeviceLocation(c *gin.Context) {
	s := r.retainSession(c)
	ctx := c.Request.Context()

	var (
		loc model.Coordinate
		err error
	)
	if c.Request.ContentLength > 0 {
		var req deviceLocationReq
		if bindErr := c.BindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		fix := session.ReportedFix{Code: req.Code}
		if req.Lat != nil && req.Lng != nil {
			fix.Position = &model.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		}
		loc, err = s.Location.AcquireFrom(ctx, fix)
	} else {
		loc, err = s.Location.AcquireDeviceLocation(ctx)
	}

	warning, err := persistenceWarning(err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, locationResponse(s, &loc, warning))
}

func (r *Router) listSaved(c *gin.Context) {
	s := currentSession(c)
	c.JSON(http.StatusOK, gin.H{"items": s.Saved.Values()})
}

func (r *Router) listSavedListings(c *gin.Context) {
	s := currentSession(c)
	items, err := r.listings.Resolve(c.Request.Context(), s.Saved.Values(), s.Location.Current())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": r.views(s, items)})
}

func (r *Router) saveListing(c *gin.Context) {
	s := r.retainSession(c)
	added, err := s.Saved.Add(c.Request.Context(), c.Param("id"))
	warning, err := persistenceWarning(err)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"id": c.Param("id"), "saved": true, "changed": added}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) unsaveListing(c *gin.Context) {
	s := r.retainSession(c)
	removed, err := s.Saved.Remove(c.Request.Context(), c.Param("id"))
	warning, err := persistenceWarning(err)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"id": c.Param("id"), "saved": false, "changed": removed}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}
