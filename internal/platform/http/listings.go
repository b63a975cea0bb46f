package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/internal/business/session"
	"github.com/jbaylocal/marketplace-api/pkg/geo"
	"github.com/jbaylocal/marketplace-api/pkg/model"
)

// listingView is a listing as rendered for one session.
type listingView struct {
	model.Listing
	DistanceLabel string `json:"distanceLabel,omitempty"`
	Saved         bool   `json:"saved"`
}

func (r *Router) views(s *session.Session, listings []model.Listing) []listingView {
	out := make([]listingView, 0, len(listings))
	for _, l := range listings {
		v := listingView{Listing: l, Saved: s.Saved.Contains(l.ID)}
		if l.Distance != nil {
			v.DistanceLabel = geo.FormatDistance(*l.Distance)
		}
		out = append(out, v)
	}
	return out
}

// browseRequest parses the listing query string. Unknown enum values are rejected.
func browseRequest(c *gin.Context, origin *model.Coordinate) (catalog.BrowseRequest, error) {
	req := catalog.BrowseRequest{
		Search: strings.TrimSpace(c.Query("search")),
		Origin: origin,
	}
	if c.Query("preset") == "near-me" {
		req.Filters = model.DefaultFilterConfig()
	}

	if v := strings.TrimSpace(c.Query("category")); v != "" && v != "all" {
		cat, ok := model.ParseCategory(v)
		if !ok {
			return req, &session.ValidationError{Field: "category", Message: "unknown category " + strconv.Quote(v)}
		}
		req.Category = cat
	}

	for _, tok := range splitList(c.Query("categories")) {
		cat, ok := model.ParseCategory(tok)
		if !ok {
			return req, &session.ValidationError{Field: "categories", Message: "unknown category " + strconv.Quote(tok)}
		}
		req.Filters.Categories = append(req.Filters.Categories, cat)
	}
	for _, tok := range splitList(c.Query("priceRanges")) {
		p, ok := model.ParsePriceRange(tok)
		if !ok {
			return req, &session.ValidationError{Field: "priceRanges", Message: "unknown price range " + strconv.Quote(tok)}
		}
		req.Filters.PriceRanges = append(req.Filters.PriceRanges, p)
	}
	for _, tok := range splitList(c.Query("availability")) {
		d, ok := model.ParseWeekday(tok)
		if !ok {
			return req, &session.ValidationError{Field: "availability", Message: "unknown day " + strconv.Quote(tok)}
		}
		req.Filters.Availability = append(req.Filters.Availability, d)
	}

	if v := strings.TrimSpace(c.Query("maxDistance")); v != "" {
		if v == "any" {
			req.Filters.MaxDistanceKm = nil
		} else {
			d, err := strconv.ParseFloat(v, 64)
			if err != nil || d < 0 {
				return req, &session.ValidationError{Field: "maxDistance", Message: "maxDistance must be a non-negative number of km"}
			}
			req.Filters.MaxDistanceKm = &d
		}
	}
	if v := c.Query("sortBy"); v != "" {
		key, err := model.ParseSortKey(v)
		if err != nil {
			return req, &session.ValidationError{Field: "sortBy", Message: err.Error()}
		}
		req.Filters.SortBy = key
	}
	req.Filters.FeaturedOnly = c.Query("featured") == "true"
	req.Filters.HasContactInfo = c.Query("hasContactInfo") == "true"
	return req, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type browseFunc func(ctx context.Context, req catalog.BrowseRequest) (catalog.BrowseResult, error)

func (r *Router) browse(c *gin.Context, run browseFunc) {
	s := currentSession(c)
	origin := s.Location.Current()
	req, err := browseRequest(c, origin)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"location": origin}
	if origin != nil {
		resp["withinServiceArea"] = s.Location.IsWithinServiceArea(*origin)
	}

	result, err := run(c.Request.Context(), req)
	if err != nil {
		if !errors.Is(err, catalog.ErrDataFetch) {
			writeError(c, err)
			return
		}
		// The list degrades to empty; the client shows the notice.
		resp["error"] = "Listings could not be loaded. Please try again later."
	}
	resp["items"] = r.views(s, result.Items)
	resp["total"] = result.Total
	resp["sortBy"] = result.SortBy
	c.JSON(http.StatusOK, resp)
}

func (r *Router) listListings(c *gin.Context) {
	r.browse(c, r.listings.Browse)
}

func (r *Router) mapListings(c *gin.Context) {
	r.browse(c, r.listings.MapListings)
}

func (r *Router) featuredListings(c *gin.Context) {
	s := currentSession(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))
	items, err := r.listings.Featured(c.Request.Context(), limit, s.Location.Current())
	if err != nil {
		if errors.Is(err, catalog.ErrDataFetch) {
			c.JSON(http.StatusOK, gin.H{"items": []listingView{}, "error": "Featured listings could not be loaded."})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": r.views(s, items)})
}

func (r *Router) getListing(c *gin.Context) {
	s := currentSession(c)
	origin := s.Location.Current()
	l, err := r.listings.Get(c.Request.Context(), c.Param("id"), origin)
	if err != nil {
		writeError(c, err)
		return
	}
	r.listings.RecordView(l.ID)

	views := r.views(s, []model.Listing{l})
	resp := gin.H{
		"listing": views[0],
		"share":   session.BuildShareLink(r.baseURL, l.ID, l.Title, l.Description),
	}
	if l.Location != nil {
		resp["directionsUrl"] = geo.DirectionsURL(*l.Location, origin)
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) authorListings(c *gin.Context) {
	s := currentSession(c)
	items, err := r.listings.ByAuthor(c.Request.Context(), c.Param("id"), s.Location.Current())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": r.views(s, items)})
}

type shareReq struct {
	// Outcome of the browser share sheet: shared, cancelled or failed.
	// Empty when the browser has no native share.
	Outcome string `json:"outcome"`
}

// reportedSharer replays the outcome of a share attempted by the browser.
type reportedSharer string

func (o reportedSharer) Share(ctx context.Context, link session.ShareLink) error {
	switch o {
	case "shared":
		return nil
	case "cancelled":
		return session.ErrShareCancelled
	default:
		return errors.New("share failed")
	}
}

// responseClipboard hands the copied text back to the client in the response.
type responseClipboard struct {
	text string
}

func (c *responseClipboard) WriteText(ctx context.Context, text string) error {
	c.text = text
	return nil
}

func (r *Router) shareListing(c *gin.Context) {
	var req shareReq
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}

	l, err := r.listings.Get(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		writeError(c, err)
		return
	}
	link := session.BuildShareLink(r.baseURL, l.ID, l.Title, l.Description)

	var sharer session.Sharer
	if req.Outcome != "" {
		sharer = reportedSharer(req.Outcome)
	}
	clip := &responseClipboard{}
	method, err := session.Share(c.Request.Context(), link, sharer, clip)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"method": method, "link": link}
	if clip.text != "" {
		resp["clipboardText"] = clip.text
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) getStats(c *gin.Context) {
	s := currentSession(c)
	stats, err := r.listings.Stats(c.Request.Context(), s.Location.Current())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (r *Router) refreshStats(c *gin.Context) {
	stats, err := r.listings.RefreshStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
