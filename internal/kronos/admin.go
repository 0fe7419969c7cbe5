// internal/kronos/admin.go
package kronos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/models"
	"github.com/lramos15/kronos-discord/internal/plex"
)

// AdminAPI talks to the internal Kronos API as the admin user. This exposes
// routes the public API key cannot reach, such as per-service Plex detail.
type AdminAPI struct {
	endpoint     string
	session      *AuthSession
	httpClient   *http.Client
	probeTimeout time.Duration
}

func NewAdminAPI(endpoint, username, password string, timeout time.Duration) *AdminAPI {
	endpoint = strings.TrimSuffix(endpoint, "/")
	return &AdminAPI{
		endpoint:     endpoint,
		session:      NewAuthSession(endpoint, username, password, timeout),
		httpClient:   &http.Client{Timeout: timeout},
		probeTimeout: timeout,
	}
}

// UserID resolves the Kronos user id for a WHMCS client through the admin
// user search. The search can return superset matches, so results are scanned
// for an exact WHMCS id. Absent on miss; only login failures are errors.
func (a *AdminAPI) UserID(ctx context.Context, whmcsID int) (int, bool, error) {
	endpoint := fmt.Sprintf(
		"%s/api/admin/users?query=%d&filterStatus=all&perpage=50&page=1&sortColumn=whmcs_id&sortDirection=desc",
		a.endpoint, whmcsID,
	)

	var search models.AdminUserSearchResponse
	if err := a.doAsAdmin(ctx, http.MethodGet, endpoint, &search); err != nil {
		if errors.Is(err, ErrAuthentication) {
			return 0, false, err
		}
		log.Error("Admin user search failed", "whmcs_id", whmcsID, "error", err)
		return 0, false, nil
	}

	for _, user := range search.Data {
		if user.WhmcsID == whmcsID {
			return user.ID, true, nil
		}
	}
	return 0, false, nil
}

// Services lists every service the given Kronos user owns by reading the
// owned servers embedded in the admin user detail. On any failure the call
// is logged and an empty slice returned; nothing propagates past here.
func (a *AdminAPI) Services(ctx context.Context, userID int) []*Service {
	endpoint := fmt.Sprintf("%s/api/admin/users/user/%d", a.endpoint, userID)

	var user models.AdminUserResponse
	if err := a.doAsAdmin(ctx, http.MethodGet, endpoint, &user); err != nil {
		log.Error("Failed to list services via admin API", "user_id", userID, "error", err)
		return nil
	}

	services := make([]*Service, 0, len(user.OwnedServers))
	for _, raw := range user.OwnedServers {
		svc := newService(adminRecordFromResponse(raw), a)
		if raw.PlexServerIP != "" {
			svc.plexURL = fmt.Sprintf("http://%s:%d", raw.PlexServerIP, raw.PlexServerPort)
			if raw.PlexToken != "" {
				svc.probe = plex.NewClient(svc.plexURL, raw.PlexToken, a.probeTimeout)
			}
		}
		services = append(services, svc)
	}
	return services
}

// fetchStatus implements serviceClient against the internal admin API.
func (a *AdminAPI) fetchStatus(ctx context.Context, serviceID int) (string, error) {
	endpoint := fmt.Sprintf("%s/api/admin/servers/server/%d/status", a.endpoint, serviceID)

	var status models.StatusResponse
	if err := a.doAsAdmin(ctx, http.MethodGet, endpoint, &status); err != nil {
		return "", err
	}
	return status.Status, nil
}

// applyOperation implements serviceClient against the internal admin API.
func (a *AdminAPI) applyOperation(ctx context.Context, serviceID int, op Operation) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/admin/servers/server/%d/%s", a.endpoint, serviceID, op)

	var result models.OperationResponse
	if err := a.doAsAdmin(ctx, http.MethodPost, endpoint, &result); err != nil {
		return false, err
	}
	return result.Success, nil
}

// doAsAdmin submits a request to the internal API with the admin credential
// attached, acquiring or refreshing the credential first when needed.
func (a *AdminAPI) doAsAdmin(ctx context.Context, method, endpoint string, out any) error {
	cred, err := a.session.Credential(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader("{}")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AuthToken)
	req.Header.Set("X-Csrf-Token", cred.CSRFToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("admin request returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// adminRecordFromResponse builds the immutable record from the admin payload,
// where the node alias lives on the embedded node object.
func adminRecordFromResponse(raw models.AdminServiceResponse) Record {
	record := recordFromResponse(raw.ServiceResponse)
	record.NodeAlias = raw.Node.Alias
	return record
}
