// internal/kronos/service.go
package kronos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/plex"
)

// StatusUnavailable is reported when a live status fetch fails. It is cached
// like any other status so repeated failures stay rate-limited.
const StatusUnavailable = "Unable to return status!"

// statusCacheTTL bounds how often a service status is fetched from the backend.
const statusCacheTTL = 60 * time.Second

// Operation is one of the lifecycle operations a service accepts.
type Operation string

const (
	OperationStart   Operation = "start"
	OperationStop    Operation = "stop"
	OperationRestart Operation = "restart"
)

// Record is the immutable, backend-sourced description of one service.
// It never changes after construction; a status change only updates the
// status cache of the owning Service.
type Record struct {
	ID                     int
	Alias                  string
	Product                string
	SupportsGPUTranscoding bool
	ContainerFolderName    string
	NodeAlias              string
}

// serviceClient issues the backend-specific status and lifecycle calls for
// one service. Both API variants implement it.
type serviceClient interface {
	fetchStatus(ctx context.Context, serviceID int) (string, error)
	applyOperation(ctx context.Context, serviceID int, op Operation) (bool, error)
}

// Service wraps one controllable media-server instance. The backend that
// listed it decides which client it talks through and whether it carries
// Plex access for live stream lookups.
type Service struct {
	record Record
	client serviceClient

	// Plex access, populated only by the admin backend and only when the
	// service carries a Plex token.
	plexURL string
	probe   *plex.Client

	now func() time.Time

	mu           sync.Mutex
	statusCached string
	statusAt     time.Time
}

func newService(record Record, client serviceClient) *Service {
	return &Service{record: record, client: client, now: time.Now}
}

func (s *Service) ID() int                      { return s.record.ID }
func (s *Service) Alias() string                { return s.record.Alias }
func (s *Service) Product() string              { return s.record.Product }
func (s *Service) SupportsGPUTranscoding() bool { return s.record.SupportsGPUTranscoding }
func (s *Service) ContainerFolderName() string  { return s.record.ContainerFolderName }
func (s *Service) NodeAlias() string            { return s.record.NodeAlias }

// Description is a short human description of the service.
func (s *Service) Description() string {
	return fmt.Sprintf("Node %s - %s", s.record.NodeAlias, s.record.Product)
}

// PlexURL is the externally reachable address of the wrapped Plex server,
// or empty when the backend does not expose one.
func (s *Service) PlexURL() string { return s.plexURL }

// Status returns the current service status. Results are cached for a minute
// to prevent slowdowns to the endpoint; forceRefresh bypasses the cache.
// A failed fetch yields StatusUnavailable and is cached like a real status.
func (s *Service) Status(ctx context.Context, forceRefresh bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !forceRefresh && s.statusAt.Add(statusCacheTTL).After(now) {
		return s.statusCached
	}

	status, err := s.client.fetchStatus(ctx, s.record.ID)
	if err != nil {
		log.Error("Failed to fetch service status", "service_id", s.record.ID, "error", err)
		status = StatusUnavailable
	} else if status == "exited" {
		// Exited is a weird status, stopped is clearer to the user
		status = "stopped"
	}

	s.statusCached = status
	s.statusAt = s.now()
	return status
}

// Start powers the service on. Returns the backend-reported success flag.
func (s *Service) Start(ctx context.Context) bool {
	return s.executeOperation(ctx, OperationStart)
}

// Stop shuts the service down. Returns the backend-reported success flag.
func (s *Service) Stop(ctx context.Context) bool {
	return s.executeOperation(ctx, OperationStop)
}

// Restart restarts the service. Returns the backend-reported success flag.
func (s *Service) Restart(ctx context.Context) bool {
	return s.executeOperation(ctx, OperationRestart)
}

// executeOperation powers the start, stop and restart calls. A transport
// failure is logged and reported as false, never raised.
func (s *Service) executeOperation(ctx context.Context, op Operation) bool {
	ok, err := s.client.applyOperation(ctx, s.record.ID, op)
	if err != nil {
		log.Error("Service operation failed", "service_id", s.record.ID, "operation", op, "error", err)
		return false
	}
	return ok
}

// StreamInfo resolves live session counts for the wrapped Plex server.
// Services without Plex access report unknown counts without any network call.
func (s *Service) StreamInfo(ctx context.Context) plex.StreamInfo {
	if s.probe == nil {
		return plex.StreamInfo{}
	}
	return s.probe.StreamInfo(ctx)
}

// Backend resolves a customer's services through one of the two Kronos APIs.
type Backend interface {
	// UserID maps a WHMCS client id to the Kronos user id. found is false
	// when no matching user exists; transport and authentication failures
	// are returned as errors.
	UserID(ctx context.Context, whmcsID int) (userID int, found bool, err error)
	// Services returns every service owned by the given Kronos user, in
	// backend order. Lookup failures degrade to an empty slice.
	Services(ctx context.Context, userID int) []*Service
}
