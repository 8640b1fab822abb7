package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
)

func (c *Client) VolumeExists(ctx context.Context, name string) (bool, error) {
	_, err := c.cli.VolumeInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect volume %s: %w", name, err)
	}
	return true, nil
}
