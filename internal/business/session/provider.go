package session

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/geo"
	"github.com/jbaylocal/marketplace-api/pkg/model"
)

const (
	DefaultLocationTimeout = 15 * time.Second
	DefaultLocationMaxAge  = 5 * time.Minute
)

// Locator is a one-shot device position source.
type Locator interface {
	Locate(ctx context.Context) (model.Coordinate, error)
}

// ReportedFix is a position (or W3C error code) already obtained by the browser.
type ReportedFix struct {
	Position *model.Coordinate
	Code     int
}

func (r ReportedFix) Locate(ctx context.Context) (model.Coordinate, error) {
	if r.Position != nil {
		return *r.Position, nil
	}
	return model.Coordinate{}, LocationErrorFromCode(r.Code)
}

// ProviderOptions tunes device acquisition and the service area check.
type ProviderOptions struct {
	Timeout time.Duration
	MaxAge  time.Duration
	Area    geo.Bounds
	Now     func() time.Time
}

// Provider owns the active user location of one session.
type Provider struct {
	sessionID string
	store     StateStore
	locator   Locator
	timeout   time.Duration
	maxAge    time.Duration
	area      geo.Bounds
	now       func() time.Time

	mu        sync.Mutex
	location  *model.Coordinate
	lastFix   *model.Coordinate
	lastFixAt time.Time
}

func NewProvider(sessionID string, store StateStore, locator Locator, opts ProviderOptions) *Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLocationTimeout
	}
	if opts.MaxAge < 0 {
		opts.MaxAge = 0
	}
	if opts.Area == (geo.Bounds{}) {
		opts.Area = geo.JeffreysBay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		sessionID: sessionID,
		store:     store,
		locator:   locator,
		timeout:   opts.Timeout,
		maxAge:    opts.MaxAge,
		area:      opts.Area,
		now:       opts.Now,
	}
}

// Restore applies a persisted location. An already active location wins.
func (p *Provider) Restore(state model.SessionState) {
	if state.Location == nil || !geo.ValidCoordinate(*state.Location) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location == nil {
		loc := *state.Location
		p.location = &loc
	}
}

// Current returns a copy of the active location, or nil.
func (p *Provider) Current() *model.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location == nil {
		return nil
	}
	loc := *p.location
	return &loc
}

// AcquireDeviceLocation asks the configured locator for a fix. A fix younger
// than the max age is reused without asking again.
func (p *Provider) AcquireDeviceLocation(ctx context.Context) (model.Coordinate, error) {
	p.mu.Lock()
	if p.lastFix != nil && p.maxAge > 0 && p.now().Sub(p.lastFixAt) < p.maxAge {
		c := *p.lastFix
		p.mu.Unlock()
		return c, p.apply(ctx, c)
	}
	p.mu.Unlock()

	if p.locator == nil {
		return model.Coordinate{}, &LocationError{Kind: PositionUnavailable, Err: errors.New("no locator configured")}
	}
	return p.AcquireFrom(ctx, p.locator)
}

// AcquireFrom runs one bounded request against locator and applies the result.
func (p *Provider) AcquireFrom(ctx context.Context, locator Locator) (model.Coordinate, error) {
	locateCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	c, err := locateWithin(locateCtx, locator)
	if err != nil {
		return model.Coordinate{}, classifyLocationError(err)
	}
	if !geo.ValidCoordinate(c) {
		return model.Coordinate{}, &LocationError{Kind: PositionUnavailable, Err: errors.New("device reported an invalid position")}
	}

	p.mu.Lock()
	fix := c
	p.lastFix = &fix
	p.lastFixAt = p.now()
	p.mu.Unlock()

	return c, p.apply(ctx, c)
}

type locateResult struct {
	c   model.Coordinate
	err error
}

// locateWithin returns when the locator answers or ctx ends, whichever is
// first. A locator that ignores ctx is left to finish on its own.
func locateWithin(ctx context.Context, locator Locator) (model.Coordinate, error) {
	done := make(chan locateResult, 1)
	go func() {
		c, err := locator.Locate(ctx)
		done <- locateResult{c: c, err: err}
	}()
	select {
	case res := <-done:
		if res.err == nil && ctx.Err() != nil {
			return model.Coordinate{}, ctx.Err()
		}
		return res.c, res.err
	case <-ctx.Done():
		return model.Coordinate{}, ctx.Err()
	}
}

func classifyLocationError(err error) *LocationError {
	var locErr *LocationError
	if errors.As(err, &locErr) {
		return locErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &LocationError{Kind: Timeout, Err: err}
	}
	return &LocationError{Kind: PositionUnavailable, Err: err}
}

// SetManual replaces the active location with a user-entered coordinate.
func (p *Provider) SetManual(ctx context.Context, lat, lng float64) (model.Coordinate, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return model.Coordinate{}, &ValidationError{Field: "lat", Message: "latitude must be a number between -90 and 90"}
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return model.Coordinate{}, &ValidationError{Field: "lng", Message: "longitude must be a number between -180 and 180"}
	}
	c := model.Coordinate{Lat: lat, Lng: lng}
	return c, p.apply(ctx, c)
}

// SetManualText parses form input before calling SetManual.
func (p *Provider) SetManualText(ctx context.Context, lat, lng string) (model.Coordinate, error) {
	latVal, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return model.Coordinate{}, &ValidationError{Field: "lat", Message: "latitude must be a number"}
	}
	lngVal, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return model.Coordinate{}, &ValidationError{Field: "lng", Message: "longitude must be a number"}
	}
	return p.SetManual(ctx, latVal, lngVal)
}

// Clear unsets the active location and deletes the persisted copy.
func (p *Provider) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = nil
	p.lastFix = nil
	if p.store == nil {
		return nil
	}
	if err := p.store.ClearLocation(ctx, p.sessionID); err != nil {
		return persistenceError("clear location", err)
	}
	return nil
}

// IsWithinServiceArea reports whether c falls in the operating region. It is advisory.
func (p *Provider) IsWithinServiceArea(c model.Coordinate) bool {
	return p.area.Contains(c)
}

// apply sets c as the active location and persists it. The in-memory change
// is kept when the write fails.
func (p *Provider) apply(ctx context.Context, c model.Coordinate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	loc := c
	p.location = &loc
	if p.store == nil {
		return nil
	}
	if err := p.store.SaveLocation(ctx, p.sessionID, c); err != nil {
		return persistenceError("save location", err)
	}
	return nil
}
