package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
)

// RunHelper creates a throwaway container, waits for it to exit, and treats
// any non-zero exit code as failure. All volume-level surgery (snapshots,
// clearing, unpacking base backups) goes through here so the target
// container itself is never touched while stopped. Staged files are copied
// into the helper's layer before it starts.
func (c *Client) RunHelper(ctx context.Context, spec HelperSpec) error {
	if err := c.EnsureImage(ctx, spec.Image, nil); err != nil {
		return err
	}

	mounts := make([]mount.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mnt := mount.Mount{
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		}
		if m.Volume != "" {
			mnt.Type = mount.TypeVolume
			mnt.Source = m.Volume
		} else {
			mnt.Type = mount.TypeBind
			mnt.Source = m.HostPath
		}
		mounts = append(mounts, mnt)
	}

	config := &container.Config{
		Image: spec.Image,
		Cmd:   spec.Cmd,
	}
	hostConfig := &container.HostConfig{
		Mounts:     mounts,
		AutoRemove: true,
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create helper container: %w", err)
	}

	// AutoRemove only fires once the container has run, so a helper that
	// never starts must be removed by hand.
	for _, st := range spec.Stage {
		if err := c.CopyTo(ctx, resp.ID, st.HostPath, st.Target); err != nil {
			c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
			return fmt.Errorf("failed to stage %s in helper container: %w", st.HostPath, err)
		}
	}

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start helper container: %w", err)
	}

	statusCh, errCh := c.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error waiting for helper container: %w", err)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("helper container exited with code %d", status.StatusCode)
		}
	}

	return nil
}
