// internal/panel/panel.go
package panel

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lramos15/kronos-discord/internal/kronos"
	"github.com/lramos15/kronos-discord/internal/plex"
)

// DefaultWindow is how long a session listens for UI events. The deadline is
// fixed at session start; interactions do not extend it.
const DefaultWindow = 240 * time.Second

// genericErrorNotice is shown when an event cannot be applied.
const genericErrorNotice = "Something went wrong, please try again."

// ErrNoServices is returned when a session would have nothing to control.
var ErrNoServices = errors.New("no services to control")

// Service is what the panel needs from a controllable service. Implemented
// by both kronos API variants.
type Service interface {
	ID() int
	Alias() string
	Product() string
	Description() string
	SupportsGPUTranscoding() bool
	ContainerFolderName() string
	NodeAlias() string
	PlexURL() string
	Status(ctx context.Context, forceRefresh bool) string
	Start(ctx context.Context) bool
	Stop(ctx context.Context) bool
	Restart(ctx context.Context) bool
	StreamInfo(ctx context.Context) plex.StreamInfo
}

// EventKind distinguishes the two component interactions a panel understands.
type EventKind string

const (
	// EventSelect carries the id of the service the user picked.
	EventSelect EventKind = "select"
	// EventButton carries the lifecycle operation the user pressed.
	EventButton EventKind = "button"
)

// Event is one user interaction delivered by the transport.
type Event struct {
	Kind  EventKind
	Value string
	// Origin is the transport-specific handle of the interaction that
	// produced the event; Ack answers it.
	Origin any
}

// Transport is the chat-side collaborator of a session. It draws views and
// feeds the user's interactions back. Render replaces the previously
// rendered view in place.
type Transport interface {
	// Ack immediately answers the given event with the view, so the user who
	// triggered it never sees a failed interaction.
	Ack(ctx context.Context, event Event, view View) error
	Render(ctx context.Context, view View) error
	// Events yields interactions until ctx is done; the transport may close
	// the channel once no further events can arrive.
	Events(ctx context.Context) <-chan Event
}

// streamCounts is the resolved activity snapshot for one render.
type streamCounts struct {
	streams    *int
	transcodes *int
}

// Session drives one interactive control panel over a fixed set of services.
// The service set and the event window are decided at construction; events
// are handled strictly one at a time in arrival order, so selectedIndex is
// never touched concurrently.
type Session struct {
	id        string
	services  []Service
	transport Transport
	window    time.Duration

	selectedIndex int
	lastView      View
}

func NewSession(services []Service, transport Transport, window time.Duration) (*Session, error) {
	if len(services) == 0 {
		return nil, ErrNoServices
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Session{
		id:        uuid.NewString(),
		services:  services,
		transport: transport,
		window:    window,
	}, nil
}

// Run renders the initial panel and processes UI events until the window
// elapses. Expiry is silent: no final message, the last view stays in place.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.window)
	defer cancel()

	log.Debug("Control session started", "session_id", s.id, "services", len(s.services), "window", s.window)

	// Subscribe before the first render so a click racing it is not lost.
	events := s.transport.Events(ctx)

	if err := s.render(ctx, false); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Debug("Control session window elapsed", "session_id", s.id)
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		}
	}
}

// handleEvent acknowledges the event with a placeholder view, then applies
// it. The placeholder masks the latency of the backend calls behind a render.
func (s *Session) handleEvent(ctx context.Context, event Event) {
	if err := s.transport.Ack(ctx, event, processingView()); err != nil {
		log.Warn("Failed to acknowledge event", "session_id", s.id, "error", err)
	}

	switch event.Kind {
	case EventSelect:
		s.handleSelect(ctx, event.Value)
	case EventButton:
		s.handleOperation(ctx, event.Value)
	default:
		log.Warn("Unknown panel event", "session_id", s.id, "kind", event.Kind)
		s.renderError(ctx)
	}
}

// handleSelect switches the panel to the chosen service. A stale id (e.g.
// from a view rendered before the service set changed) restores the previous
// view with a generic error line and leaves the selection untouched.
func (s *Session) handleSelect(ctx context.Context, serviceID string) {
	index := -1
	for i, svc := range s.services {
		if strconv.Itoa(svc.ID()) == serviceID {
			index = i
			break
		}
	}
	if index == -1 {
		log.Warn("Selected service not held by session", "session_id", s.id, "service_id", serviceID)
		s.renderError(ctx)
		return
	}

	s.selectedIndex = index
	if err := s.render(ctx, false); err != nil {
		log.Warn("Failed to render selection", "session_id", s.id, "error", err)
	}
}

// handleOperation runs the requested lifecycle operation on the selected
// service and re-renders. The result boolean is dropped; the refreshed
// status is the user-visible outcome either way.
func (s *Session) handleOperation(ctx context.Context, operation string) {
	svc := s.services[s.selectedIndex]

	switch kronos.Operation(operation) {
	case kronos.OperationStart:
		svc.Start(ctx)
	case kronos.OperationStop:
		svc.Stop(ctx)
	case kronos.OperationRestart:
		svc.Restart(ctx)
	default:
		log.Warn("Unknown panel operation", "session_id", s.id, "operation", operation)
		s.renderError(ctx)
		return
	}

	// The status cache would mask the state change we just requested.
	if err := s.render(ctx, true); err != nil {
		log.Warn("Failed to render after operation", "session_id", s.id, "error", err)
	}
}

// render builds and draws the view for the selected service, remembering it
// so a later failed event can restore it.
func (s *Session) render(ctx context.Context, forceRefresh bool) error {
	svc := s.services[s.selectedIndex]
	status := svc.Status(ctx, forceRefresh)
	info := svc.StreamInfo(ctx)

	view := s.buildView(svc, status, streamCounts{streams: info.ActiveStreams, transcodes: info.ActiveTranscodes})
	s.lastView = view
	return s.transport.Render(ctx, view)
}

// renderError restores the previous rendered view, controls unchanged, with
// a generic error line on top.
func (s *Session) renderError(ctx context.Context) {
	view := s.lastView
	view.Notice = genericErrorNotice
	if err := s.transport.Render(ctx, view); err != nil {
		log.Warn("Failed to render error view", "session_id", s.id, "error", err)
	}
}
