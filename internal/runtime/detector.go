package runtime

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
)

type Info struct {
	Type       RuntimeType
	SocketPath string
	Version    string
	IsRootless bool
}

// Detect finds a usable container runtime. prefer narrows the search to one
// runtime ("docker" or "podman"); socketOverride skips socket discovery.
// With neither set, DOCKER_HOST wins, then docker, then podman.
func Detect(prefer string, socketOverride string) (*Info, error) {
	switch RuntimeType(prefer) {
	case RuntimeDocker:
		return detectDocker(socketOverride)
	case RuntimePodman:
		return detectPodman(socketOverride)
	}

	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		if strings.Contains(dockerHost, "podman") {
			return detectPodman(socketOverride)
		}
		return detectDocker(socketOverride)
	}

	if info, err := detectDocker(socketOverride); err == nil {
		return info, nil
	}

	if info, err := detectPodman(socketOverride); err == nil {
		return info, nil
	}

	return nil, fmt.Errorf("no container runtime detected (tried docker, podman)")
}

func detectDocker(socketOverride string) (*Info, error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return nil, fmt.Errorf("docker command not found")
	}

	socketPath := socketOverride
	if socketPath == "" {
		socketPath = "/var/run/docker.sock"
	}
	if _, err := os.Stat(socketPath); err != nil {
		return nil, fmt.Errorf("docker socket not found at %s", socketPath)
	}

	cmd := exec.Command("docker", "version", "--format", "{{.Server.Version}}")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get docker version: %w", err)
	}

	return &Info{
		Type:       RuntimeDocker,
		SocketPath: socketPath,
		Version:    strings.TrimSpace(string(output)),
	}, nil
}

func detectPodman(socketOverride string) (*Info, error) {
	if _, err := exec.LookPath("podman"); err != nil {
		return nil, fmt.Errorf("podman command not found")
	}

	isRootless := os.Getuid() != 0

	socketPath := socketOverride
	if socketPath == "" {
		if isRootless {
			socketPath = fmt.Sprintf("/run/user/%d/podman/podman.sock", os.Getuid())
		} else {
			socketPath = "/run/podman/podman.sock"
		}
	}

	cmd := exec.Command("podman", "version", "--format", "{{.Server.Version}}")
	output, err := cmd.Output()
	if err != nil {
		cmd = exec.Command("podman", "version", "--format", "{{.Client.Version}}")
		output, err = cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("failed to get podman version: %w", err)
		}
	}

	return &Info{
		Type:       RuntimePodman,
		SocketPath: socketPath,
		Version:    strings.TrimSpace(string(output)),
		IsRootless: isRootless,
	}, nil
}

func (r *Info) SocketURI() string {
	return fmt.Sprintf("unix://%s", r.SocketPath)
}

func (r *Info) Name() string {
	name := string(r.Type)
	if r.Type == RuntimePodman && r.IsRootless {
		name += " (rootless)"
	}
	return name
}

func (r *Info) EnsureSocketExists() error {
	if _, err := os.Stat(r.SocketPath); err != nil {
		if r.Type == RuntimePodman {
			return fmt.Errorf("podman socket not found at %s, start the API service with 'systemctl --user start podman.socket'", r.SocketPath)
		}
		return fmt.Errorf("runtime socket not found at %s", r.SocketPath)
	}
	return nil
}
