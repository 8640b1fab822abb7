package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

func (c *Client) Exec(ctx context.Context, containerName string, opts ExecOptions) (*ExecResult, error) {
	execConfig := container.ExecOptions{
		Cmd:          opts.Cmd,
		Env:          opts.Env,
		AttachStdin:  opts.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
	}

	execID, err := c.cli.ContainerExecCreate(ctx, containerName, execConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec in %s: %w", containerName, err)
	}

	attachResp, err := c.cli.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	// Stdin is copied concurrently with the output read so a command that
	// produces output while still consuming input cannot stall the pipe.
	stdinDone := make(chan error, 1)
	if opts.Stdin != nil {
		go func() {
			_, copyErr := io.Copy(attachResp.Conn, opts.Stdin)
			attachResp.CloseWrite()
			stdinDone <- copyErr
		}()
	} else {
		stdinDone <- nil
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var stdoutDst io.Writer = &stdoutBuf
	if opts.Stdout != nil {
		stdoutDst = opts.Stdout
	}

	if _, err := stdcopy.StdCopy(stdoutDst, &stderrBuf, attachResp.Reader); err != nil {
		return nil, fmt.Errorf("failed to read exec output: %w", err)
	}

	if err := <-stdinDone; err != nil {
		return nil, fmt.Errorf("failed to write exec stdin: %w", err)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return &ExecResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		ExitCode: inspect.ExitCode,
	}, nil
}
