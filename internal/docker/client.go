package docker

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/docker/client"
	"github.com/zafrullakhan001/drydock/internal/runtime"
)

// Client adapts the docker SDK to the Runtime interface. Podman is served
// through the same API socket, so one client covers both.
type Client struct {
	cli         *client.Client
	runtimeInfo *runtime.Info
}

var _ Runtime = (*Client)(nil)

func NewClient(prefer, socketOverride string) (*Client, error) {
	runtimeInfo, err := runtime.Detect(prefer, socketOverride)
	if err != nil {
		return nil, fmt.Errorf("failed to detect container runtime: %w\nplease install docker or podman", err)
	}

	if err := runtimeInfo.EnsureSocketExists(); err != nil {
		return nil, err
	}

	if os.Getenv("DOCKER_HOST") == "" {
		os.Setenv("DOCKER_HOST", runtimeInfo.SocketURI())
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create container runtime client: %w", err)
	}

	return &Client{
		cli:         cli,
		runtimeInfo: runtimeInfo,
	}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) RuntimeInfo() *runtime.Info {
	return c.runtimeInfo
}

// Ping checks that the runtime daemon behind the socket answers at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ContainerOpTimeout)
	defer cancel()

	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("runtime daemon not responding: %w", err)
	}
	return nil
}

func (c *Client) withOpTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ContainerOpTimeout)
}
