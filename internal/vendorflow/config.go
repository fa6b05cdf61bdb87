package vendorflow

import (
	"context"

	"github.com/MKPie/Fatality/internal/domain"
)

// configEnvelope wraps the document the way the save endpoint expects
// it.
type configEnvelope struct {
	Config domain.RemoteConfig `json:"config"`
}

// LoadConfig fetches the backend's sectioned configuration document.
func (c *Client) LoadConfig(ctx context.Context) (domain.RemoteConfig, error) {
	var out domain.RemoteConfig
	err := c.getJSON(ctx, "/api/config", &out)
	return out, err
}

// SaveConfig replaces the backend's configuration document.
func (c *Client) SaveConfig(ctx context.Context, cfg domain.RemoteConfig) error {
	return c.postJSON(ctx, "/api/config", configEnvelope{Config: cfg}, nil)
}
