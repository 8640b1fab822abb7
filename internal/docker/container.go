package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

func (c *Client) ContainerExists(ctx context.Context, name string) (bool, error) {
	_, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return true, nil
}

func (c *Client) ContainerStatus(ctx context.Context, name string) (string, error) {
	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "not found", nil
		}
		return "", fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return inspect.State.Status, nil
}

func (c *Client) StartContainer(ctx context.Context, name string) error {
	ctx, cancel := c.withOpTimeout(ctx)
	defer cancel()

	if err := c.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", name, err)
	}
	return nil
}

func (c *Client) StopContainer(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, ContainerStopTimeout+ContainerOpTimeout)
	defer cancel()

	timeout := int(ContainerStopTimeout.Seconds())
	err := c.cli.ContainerStop(ctx, name, container.StopOptions{
		Timeout: &timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w", name, err)
	}
	return nil
}

type pullProgress struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// EnsureImage pulls the image only when it is not present locally. Helper
// containers use small fixed images, so most runs skip the pull entirely.
func (c *Client) EnsureImage(ctx context.Context, imageName string, progressWriter io.Writer) error {
	if _, _, err := c.cli.ImageInspectWithRaw(ctx, imageName); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", imageName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, ImagePullTimeout)
	defer cancel()

	reader, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	var lastStatus string
	for scanner.Scan() {
		var progress pullProgress
		if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
			continue
		}
		if progress.Status != lastStatus && progress.ID == "" {
			if progressWriter != nil && !strings.Contains(progress.Status, "Digest:") {
				fmt.Fprintf(progressWriter, "  %s\n", progress.Status)
			}
			lastStatus = progress.Status
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull output: %w", err)
	}
	return nil
}
