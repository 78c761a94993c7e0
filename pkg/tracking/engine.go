package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JamesRaphaelJRC/guildme/pkg/api"
	"github.com/JamesRaphaelJRC/guildme/pkg/flash"
	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
	"github.com/JamesRaphaelJRC/guildme/pkg/session"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Phase is the tracking session lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePolling
)

// Backend is the subset of remote calls the tracking engine needs.
type Backend interface {
	FriendLocation(ctx context.Context, friend string) (types.Coordinates, error)
	UpdateLocation(ctx context.Context, coords types.Coordinates) error
}

// MapView renders the map. SetRoute updates the endpoints of one route
// overlay in place; implementations must not stack a second overlay.
type MapView interface {
	SetSelf(coords types.Coordinates)
	SetRoute(self, target types.Coordinates)
	Clear()
}

// Locator is a continuous platform location subscription, independent of
// any tracking session.
type Locator interface {
	// Watch starts the subscription. Updates arrive on the first channel,
	// a terminal failure on the second.
	Watch(ctx context.Context) (<-chan types.Coordinates, <-chan error, error)
}

// LocationCache persists the last known self coordinates across restarts.
type LocationCache interface {
	SetLastLocation(coords types.Coordinates) error
}

// Engine polls a tracked friend's coordinates on a fixed interval, drives
// the map route, and terminates on arrival, authorization failure, or
// navigation away. At most one target is polled at a time; a response
// belonging to a superseded target is discarded by ticket check.
type Engine struct {
	backend  Backend
	state    *session.State
	flash    flash.Notifier
	view     MapView
	cache    LocationCache
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	phase       Phase
	cancelPoll  context.CancelFunc
	stopLocator context.CancelFunc
	// disabled is set when the platform location watch fails; the
	// tracking affordance stays off for the rest of the process lifetime.
	disabled bool
}

// NewEngine creates a tracking engine in the Idle phase.
func NewEngine(backend Backend, state *session.State, notifier flash.Notifier, view MapView, cache LocationCache, interval time.Duration) *Engine {
	return &Engine{
		backend:  backend,
		state:    state,
		flash:    notifier,
		view:     view,
		cache:    cache,
		interval: interval,
		logger:   log.WithComponent("tracking"),
	}
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Disabled reports whether the tracking affordance has been switched off
// by a locator failure.
func (e *Engine) Disabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disabled
}

// StartLocator begins the continuous self-location watch. Every update is
// recorded locally, pushed to the backend and rendered; a watch failure
// disables tracking for the remainder of the process.
func (e *Engine) StartLocator(ctx context.Context, locator Locator) {
	watchCtx, cancel := context.WithCancel(ctx)
	updates, errs, err := locator.Watch(watchCtx)
	if err != nil {
		cancel()
		e.handleLocatorFailure(err)
		return
	}

	e.mu.Lock()
	e.stopLocator = cancel
	e.mu.Unlock()

	go func() {
		for {
			select {
			case coords, ok := <-updates:
				if !ok {
					return
				}
				e.handleSelfUpdate(ctx, coords)
			case err, ok := <-errs:
				if !ok {
					return
				}
				e.handleLocatorFailure(err)
				return
			case <-watchCtx.Done():
				return
			}
		}
	}()
}

func (e *Engine) handleSelfUpdate(ctx context.Context, coords types.Coordinates) {
	e.state.SetSelfCoords(coords)
	if e.cache != nil {
		if err := e.cache.SetLastLocation(coords); err != nil {
			e.logger.Warn().Err(err).Msg("cache self location")
		}
	}
	if err := e.backend.UpdateLocation(ctx, coords); err != nil {
		e.logger.Warn().Err(err).Msg("report self location")
	}
	e.view.SetSelf(coords)
}

func (e *Engine) handleLocatorFailure(err error) {
	e.logger.Error().Err(err).Msg("self-location watch failed")

	e.mu.Lock()
	e.disabled = true
	e.stopPollLocked()
	stop := e.stopLocator
	e.stopLocator = nil
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
	e.state.ClearTrackingTarget()
	e.flash.Error("Location services disabled. To enable, please go to your browser settings and allow location access for this site.")
}

// Track starts polling friend's location. Guard: without a known self
// location the session never starts. Selecting a new target while polling
// cancels the previous session and clears its overlay first.
func (e *Engine) Track(ctx context.Context, friend string) {
	e.mu.Lock()
	if e.disabled {
		e.mu.Unlock()
		e.flash.Error("Location services are disabled, reload to turn tracking back on")
		return
	}
	e.mu.Unlock()

	if _, ok := e.state.SelfCoords(); !ok {
		e.flash.Error("Cannot view " + friend + " on the map, your location is turned off")
		return
	}

	e.mu.Lock()
	e.stopPollLocked()
	if target, ok := e.state.TrackingTarget(); ok && target != friend {
		e.view.Clear()
	}
	ticket, _ := e.state.SetTrackingTarget(friend)

	pollCtx, cancel := context.WithCancel(ctx)
	e.cancelPoll = cancel
	e.phase = PhasePolling
	e.mu.Unlock()

	go e.poll(pollCtx, friend, ticket)
}

// StopExternal tears down the tracking session from outside: clicking away
// from the map region. The overlay is cleared and the self marker redrawn.
func (e *Engine) StopExternal() {
	e.mu.Lock()
	e.stopPollLocked()
	e.mu.Unlock()

	e.state.ClearTrackingTarget()
	e.view.Clear()
	if coords, ok := e.state.SelfCoords(); ok {
		e.view.SetSelf(coords)
	}
}

// Stop halts polling and the locator watch. Used at daemon shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopPollLocked()
	stop := e.stopLocator
	e.stopLocator = nil
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// stopPollLocked cancels the active poll loop. Caller holds e.mu.
func (e *Engine) stopPollLocked() {
	if e.cancelPoll != nil {
		e.cancelPoll()
		e.cancelPoll = nil
	}
	e.phase = PhaseIdle
}

// poll issues one location request per interval tick. Ticks never overlap:
// the next request is not sent before the previous one completed.
func (e *Engine) poll(ctx context.Context, friend string, ticket session.Ticket) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !e.tick(ctx, friend, ticket) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// tick performs one poll cycle. It returns false when polling must stop:
// arrival, authorization failure, or a superseded session.
func (e *Engine) tick(ctx context.Context, friend string, ticket session.Ticket) bool {
	metrics.TrackingPollTicksTotal.Inc()

	coords, err := e.backend.FriendLocation(ctx, friend)

	// The user may have switched targets while the request was in
	// flight. A stale response must never reach the map.
	if !e.state.TrackingStillCurrent(ticket) {
		metrics.StaleResponsesDiscardedTotal.WithLabelValues("tracking").Inc()
		e.logger.Debug().Str("friend", friend).Msg("discarding response for superseded target")
		return false
	}

	if err != nil {
		return e.handlePollError(friend, err)
	}

	e.state.SetTargetCoords(coords)
	self, ok := e.state.SelfCoords()
	if !ok {
		return true
	}

	if coords.Equal(self) {
		// Arrived: stop polling and the self watch, leave the final
		// frame on screen.
		e.mu.Lock()
		e.stopPollLocked()
		stop := e.stopLocator
		e.stopLocator = nil
		e.mu.Unlock()
		if stop != nil {
			stop()
		}
		e.state.ClearTrackingTarget()
		e.logger.Info().Str("friend", friend).Msg("arrived at destination")
		return false
	}

	e.view.SetRoute(self, coords)
	return true
}

// handlePollError classifies a failed location request. Missing location
// and revoked access read differently to the user; both end the session.
// Transport failures keep the session alive for the next tick.
func (e *Engine) handlePollError(friend string, err error) bool {
	switch {
	case api.IsStatus(err, 404):
		e.flash.Error(friend + "'s location is currently unavailable.")
	case api.IsClientError(err):
		e.flash.Error(friend + " did not grant you track access or no more exist")
	default:
		e.logger.Warn().Err(err).Str("friend", friend).Msg("location poll failed")
		return true
	}

	e.state.SetAccessGranted(false)
	e.mu.Lock()
	e.stopPollLocked()
	e.mu.Unlock()
	e.state.ClearTrackingTarget()
	return false
}
