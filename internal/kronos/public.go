// internal/kronos/public.go
package kronos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/models"
)

// publicPageLimit is the fixed page size for listing queries. One page is
// assumed to cover any customer.
const publicPageLimit = 500

// PublicAPI talks to the official, token-authenticated Kronos API.
type PublicAPI struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewPublicAPI(endpoint, token string, timeout time.Duration) *PublicAPI {
	return &PublicAPI{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UserID resolves the Kronos user id for a WHMCS client by issuing the
// service listing query filtered on the WHMCS relation id and reading the
// owner embedded in the first result. Best effort: the upstream filter
// semantics are not independently verified, so an unrelated first result
// would resolve the wrong owner.
func (p *PublicAPI) UserID(ctx context.Context, whmcsID int) (int, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/services?limit=%d&whmcs_id=%d", p.endpoint, publicPageLimit, whmcsID)

	var list models.ServiceListResponse
	if err := p.getJSON(ctx, endpoint, &list); err != nil {
		return 0, false, fmt.Errorf("failed to resolve kronos user for whmcs id %d: %w", whmcsID, err)
	}
	if len(list.Data) == 0 {
		return 0, false, nil
	}
	return list.Data[0].User.ID, true, nil
}

// Services lists every service the given Kronos user owns, preserving the
// backend order. Failures are logged and degrade to an empty slice.
func (p *PublicAPI) Services(ctx context.Context, userID int) []*Service {
	endpoint := fmt.Sprintf("%s/api/v1/services?limit=%d&user_id=%d", p.endpoint, publicPageLimit, userID)

	var list models.ServiceListResponse
	if err := p.getJSON(ctx, endpoint, &list); err != nil {
		log.Error("Failed to list services", "user_id", userID, "error", err)
		return nil
	}

	services := make([]*Service, 0, len(list.Data))
	for _, raw := range list.Data {
		services = append(services, newService(recordFromResponse(raw), p))
	}
	return services
}

// fetchStatus implements serviceClient against the official API.
func (p *PublicAPI) fetchStatus(ctx context.Context, serviceID int) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/services/%d/plex/status", p.endpoint, serviceID)

	var status models.StatusResponse
	if err := p.getJSON(ctx, endpoint, &status); err != nil {
		return "", err
	}
	return status.Status, nil
}

// applyOperation implements serviceClient against the official API.
func (p *PublicAPI) applyOperation(ctx context.Context, serviceID int, op Operation) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/services/%d/plex/%s", p.endpoint, serviceID, op)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader("{}"))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("operation %s returned status %d", op, resp.StatusCode)
	}

	var result models.OperationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, err
	}
	return result.Success, nil
}

func (p *PublicAPI) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// recordFromResponse builds the immutable service record, applying the alias
// fallback chain: alias, then display name, then "Unknown".
func recordFromResponse(raw models.ServiceResponse) Record {
	alias := "Unknown"
	if raw.Alias != nil {
		alias = *raw.Alias
	} else if raw.DisplayName != nil {
		alias = *raw.DisplayName
	}
	return Record{
		ID:                     raw.ID,
		Alias:                  alias,
		Product:                raw.ProductName,
		SupportsGPUTranscoding: raw.GPUTranscoding,
		ContainerFolderName:    raw.ContainerFolderName,
		NodeAlias:              raw.NodeAlias,
	}
}
