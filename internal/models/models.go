// internal/models/models.go
package models

// --- Structs for parsing official Kronos API responses ---

// ServiceResponse matches one entry of the official service listing endpoint
// (GET /api/v1/services). Alias and DisplayName are nullable upstream.
type ServiceResponse struct {
	ID                  int     `json:"id"`
	DisplayName         *string `json:"display_name"`
	Alias               *string `json:"alias"`
	ContainerFolderName string  `json:"container_folder_name"`
	User                struct {
		ID int `json:"id"`
	} `json:"user"`
	GPUTranscoding bool   `json:"gpu_transcoding"`
	NodeAlias      string `json:"node_alias"`
	ProductName    string `json:"product_name"`
}

// ServiceListResponse is the envelope around the service listing payload.
type ServiceListResponse struct {
	Data []ServiceResponse `json:"data"`
}

// StatusResponse matches the body of the per-service status endpoint.
type StatusResponse struct {
	Status string `json:"status"`
}

// OperationResponse matches the body returned by the start/stop/restart endpoints.
type OperationResponse struct {
	Success bool `json:"success"`
}

// --- Structs for parsing internal (admin) Kronos API responses ---

// Node describes the hosting node a service runs on.
type Node struct {
	Alias string `json:"alias"`
	ID    int    `json:"id"`
	IsUp  bool   `json:"is_up"`
}

// AdminServiceResponse extends ServiceResponse with the fields only the
// internal admin API exposes (node detail, Plex connection info).
type AdminServiceResponse struct {
	ServiceResponse
	Node           Node   `json:"node"`
	PlexServerIP   string `json:"plex_server_ip"`
	PlexServerPort int    `json:"plex_server_port"`
	PlexToken      string `json:"plex_token"`
}

// AdminUserResponse matches the user detail endpoint
// (GET /api/admin/users/user/{id}); only the owned servers are consumed.
type AdminUserResponse struct {
	OwnedServers []AdminServiceResponse `json:"owned_servers"`
}

// AdminUserSearchResult is one record of the paginated admin user search.
// The search is a superset match, so callers must re-check WhmcsID exactly.
type AdminUserSearchResult struct {
	ID      int `json:"id"`
	WhmcsID int `json:"whmcs_id"`
}

// AdminUserSearchResponse is the envelope around the admin user search payload.
type AdminUserSearchResponse struct {
	Data []AdminUserSearchResult `json:"data"`
}

// AdminLoginResponse matches the body of a successful admin login POST.
type AdminLoginResponse struct {
	Token string `json:"token"`
}

// --- Structs for parsing Plex session listings ---

// PlexSessionsResponse matches GET {plexURL}/status/sessions. TranscodeSession
// is kept as a raw presence marker; only non-nil entries count as transcodes.
type PlexSessionsResponse struct {
	MediaContainer struct {
		Size     int `json:"size"`
		Metadata []struct {
			TranscodeSession map[string]any `json:"transcodeSession"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}
