// Package testutil provides a scripted container runtime so engine logic,
// command construction, and the restore state machines run for real in
// tests without a daemon.
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zafrullakhan001/drydock/internal/docker"
)

// ExecHandler answers one class of exec call. Match sees the full command;
// the first matching handler wins.
type ExecHandler struct {
	Match func(cmd []string) bool
	// Fn, when set, computes the result and may consume opts.Stdin or
	// write to opts.Stdout. Otherwise Result/Err answer directly.
	Fn     func(opts docker.ExecOptions) (*docker.ExecResult, error)
	Result docker.ExecResult
	Err    error
}

// FakeRuntime implements docker.Runtime with canned behavior. The zero
// value answers every exec with exit 0 and treats every container and
// volume as existing and running.
type FakeRuntime struct {
	mu sync.Mutex

	// Status overrides the container state reported back; keys missing
	// from a non-nil map read as "not found".
	Status map[string]string
	// MissingVolumes marks volumes that should report as absent.
	MissingVolumes map[string]bool

	Handlers []ExecHandler

	// HelperFn runs instead of a real helper container. Nil means exit 0.
	HelperFn func(spec docker.HelperSpec) error
	// CopyFromFn materializes files in hostDir. Nil means succeed without
	// producing anything.
	CopyFromFn func(containerName, srcPath, hostDir string) error
	// CopyToFn observes copies into the container. Nil means accept.
	CopyToFn func(containerName, hostPath, dstPath string) error

	StopErr  error
	StartErr error

	// Calls records every runtime operation in order, e.g. "stop:pg" or
	// "exec:pg_dump". Tests assert on ordering and absence.
	Calls   []string
	Helpers []docker.HelperSpec
	Execs   [][]string
}

var _ docker.Runtime = (*FakeRuntime)(nil)

func (f *FakeRuntime) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallsWithPrefix returns the recorded calls starting with prefix.
func (f *FakeRuntime) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeRuntime) ContainerExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exists:" + name)
	if f.Status == nil {
		return true, nil
	}
	_, ok := f.Status[name]
	return ok, nil
}

func (f *FakeRuntime) ContainerStatus(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("status:" + name)
	if f.Status == nil {
		return "running", nil
	}
	if s, ok := f.Status[name]; ok {
		return s, nil
	}
	return "not found", nil
}

func (f *FakeRuntime) StartContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start:" + name)
	if f.StartErr != nil {
		return f.StartErr
	}
	if f.Status != nil {
		f.Status[name] = "running"
	}
	return nil
}

func (f *FakeRuntime) StopContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop:" + name)
	if f.StopErr != nil {
		return f.StopErr
	}
	if f.Status != nil {
		f.Status[name] = "exited"
	}
	return nil
}

func (f *FakeRuntime) VolumeExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("volume:" + name)
	return !f.MissingVolumes[name], nil
}

func (f *FakeRuntime) Exec(ctx context.Context, containerName string, opts docker.ExecOptions) (*docker.ExecResult, error) {
	name := ""
	if len(opts.Cmd) > 0 {
		name = opts.Cmd[0]
	}
	f.mu.Lock()
	f.record("exec:" + name)
	f.Execs = append(f.Execs, append([]string(nil), opts.Cmd...))
	handlers := f.Handlers
	f.mu.Unlock()

	for _, h := range handlers {
		if !h.Match(opts.Cmd) {
			continue
		}
		if h.Fn != nil {
			return h.Fn(opts)
		}
		if h.Err != nil {
			return nil, h.Err
		}
		res := h.Result
		return &res, nil
	}

	// Unmatched commands succeed quietly, and stdin is drained the way a
	// real process would.
	if opts.Stdin != nil {
		io.Copy(io.Discard, opts.Stdin)
	}
	return &docker.ExecResult{ExitCode: 0}, nil
}

func (f *FakeRuntime) CopyFrom(ctx context.Context, containerName, srcPath, hostDir string) error {
	f.mu.Lock()
	f.record(fmt.Sprintf("copyfrom:%s:%s", containerName, srcPath))
	fn := f.CopyFromFn
	f.mu.Unlock()

	if err := os.MkdirAll(hostDir, 0o755); err != nil {
		return err
	}
	if fn != nil {
		return fn(containerName, srcPath, hostDir)
	}
	return nil
}

func (f *FakeRuntime) CopyTo(ctx context.Context, containerName, hostPath, dstPath string) error {
	f.mu.Lock()
	f.record(fmt.Sprintf("copyto:%s:%s", containerName, dstPath))
	fn := f.CopyToFn
	f.mu.Unlock()

	if fn != nil {
		return fn(containerName, hostPath, dstPath)
	}
	return nil
}

func (f *FakeRuntime) RunHelper(ctx context.Context, spec docker.HelperSpec) error {
	f.mu.Lock()
	f.record("helper:" + spec.Image)
	f.Helpers = append(f.Helpers, spec)
	fn := f.HelperFn
	f.mu.Unlock()

	if fn != nil {
		return fn(spec)
	}
	return nil
}

// OnCommand scripts a response for every exec whose argv[0] equals name.
func (f *FakeRuntime) OnCommand(name string, result docker.ExecResult) {
	f.Handlers = append(f.Handlers, ExecHandler{
		Match:  func(cmd []string) bool { return len(cmd) > 0 && cmd[0] == name },
		Result: result,
	})
}

// OnCommandFn scripts a response function for every exec whose argv[0]
// equals name.
func (f *FakeRuntime) OnCommandFn(name string, fn func(opts docker.ExecOptions) (*docker.ExecResult, error)) {
	f.Handlers = append(f.Handlers, ExecHandler{
		Match: func(cmd []string) bool { return len(cmd) > 0 && cmd[0] == name },
		Fn:    fn,
	})
}

// OnQuery scripts the psql output for statements containing substr.
func (f *FakeRuntime) OnQuery(substr, output string) {
	f.Handlers = append(f.Handlers, ExecHandler{
		Match: func(cmd []string) bool {
			return len(cmd) > 0 && cmd[0] == "psql" && strings.Contains(strings.Join(cmd, " "), substr)
		},
		Result: docker.ExecResult{Stdout: []byte(output + "\n"), ExitCode: 0},
	})
}

// HostMount finds the host path mounted at target in a helper spec.
func HostMount(spec docker.HelperSpec, target string) (string, bool) {
	for _, m := range spec.Mounts {
		if m.Target == target && m.HostPath != "" {
			return m.HostPath, true
		}
	}
	return "", false
}

// StagedPath finds the host path staged at target in a helper spec.
func StagedPath(spec docker.HelperSpec, target string) (string, bool) {
	for _, st := range spec.Stage {
		if st.Target == target {
			return st.HostPath, true
		}
	}
	return "", false
}

// WriteHelperArchive emulates the snapshot helper: it finds the archive
// path under /backup in the helper command and writes size filler bytes to
// the bound host directory.
func WriteHelperArchive(spec docker.HelperSpec, size int) error {
	hostDir, ok := HostMount(spec, "/backup")
	if !ok {
		return fmt.Errorf("no /backup mount in helper spec")
	}
	for _, token := range strings.Fields(strings.Join(spec.Cmd, " ")) {
		if strings.HasPrefix(token, "/backup/") {
			name := strings.TrimPrefix(token, "/backup/")
			return os.WriteFile(filepath.Join(hostDir, name), make([]byte, size), 0o644)
		}
	}
	return fmt.Errorf("no /backup/ path in helper command %v", spec.Cmd)
}
