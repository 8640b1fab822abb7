package docker

import (
	"context"
	"io"
)

// Runtime is the container-runtime surface the workflows run against. The
// production implementation is Client; tests substitute a scripted fake so
// engine logic runs without a daemon.
type Runtime interface {
	ContainerExists(ctx context.Context, name string) (bool, error)
	ContainerStatus(ctx context.Context, name string) (string, error)
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string) error
	VolumeExists(ctx context.Context, name string) (bool, error)

	// Exec runs a command inside a running container and waits for it to
	// finish. A non-zero exit code is reported in the result, not as an
	// error; err is reserved for transport failures.
	Exec(ctx context.Context, containerName string, opts ExecOptions) (*ExecResult, error)

	// CopyFrom copies a file or directory out of a container (running or
	// stopped) into hostDir. The source's leading path component is
	// stripped, so copying a directory lands its contents directly in
	// hostDir.
	CopyFrom(ctx context.Context, containerName, srcPath, hostDir string) error

	// CopyTo copies a host file or directory into a container at dstPath,
	// creating parent directories on the way. It works against created and
	// running containers alike, but writes land in the container layer:
	// volume content must still be moved by a process running inside.
	CopyTo(ctx context.Context, containerName, hostPath, dstPath string) error

	// RunHelper runs a disposable container to completion and reports a
	// non-zero exit as an error. Used for volume-level work that must not
	// touch the target container itself.
	RunHelper(ctx context.Context, spec HelperSpec) error
}

type ExecOptions struct {
	Cmd   []string
	Env   []string
	Stdin io.Reader
	// Stdout, when set, receives the command's stdout as it arrives and
	// ExecResult.Stdout stays empty. Large transfers (dumps) stream this
	// way instead of buffering in memory.
	Stdout io.Writer
}

type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// HelperMount attaches either a named volume or a host path to a helper
// container. Volume and HostPath are mutually exclusive.
type HelperMount struct {
	Volume   string
	HostPath string
	Target   string
	ReadOnly bool
}

// HelperStage places a host file or directory into the helper's own
// filesystem before it starts. Data bound for a volume is staged here and
// moved onto the mounted volume by the helper command once it runs.
type HelperStage struct {
	HostPath string
	Target   string
}

type HelperSpec struct {
	Image  string
	Cmd    []string
	Mounts []HelperMount
	Stage  []HelperStage
}
