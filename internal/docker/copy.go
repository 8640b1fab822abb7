package docker

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
)

func (c *Client) CopyFrom(ctx context.Context, containerName, srcPath, hostDir string) error {
	reader, _, err := c.cli.CopyFromContainer(ctx, containerName, srcPath)
	if err != nil {
		return fmt.Errorf("failed to copy %s from container %s: %w", srcPath, containerName, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(hostDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", hostDir, err)
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read copy stream: %w", err)
		}

		name := flattenName(hdr.Name)
		if name == "" {
			continue
		}
		clean := filepath.Clean(name)
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("refusing to unpack %q outside %s", hdr.Name, hostDir)
		}
		dst := filepath.Join(hostDir, clean)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dst, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", dst, err)
			}
			out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", dst, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("failed to write %s: %w", dst, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", dst, err)
			}
		default:
			// symlinks and devices have no business in backup artifacts
		}
	}
}

// flattenName strips the wrapping directory the daemon adds when the copy
// source is a directory. Copies of single files arrive without a prefix and
// pass through unchanged.
func flattenName(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (c *Client) CopyTo(ctx context.Context, containerName, hostPath, dstPath string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", hostPath, err)
	}
	dst := strings.TrimPrefix(path.Clean(dstPath), "/")
	if dst == "" || dst == "." || dst == ".." || strings.HasPrefix(dst, "../") {
		return fmt.Errorf("invalid copy destination %q", dstPath)
	}

	// The payload streams through a pipe so large artifacts never sit in
	// memory. The stream is anchored at / with explicit directory headers,
	// which lets dstPath live in directories the image does not ship.
	pr, pw := io.Pipe()
	packErr := make(chan error, 1)
	go func() {
		err := packCopyArchive(pw, hostPath, info, dst)
		pw.CloseWithError(err)
		packErr <- err
	}()

	copyErr := c.cli.CopyToContainer(ctx, containerName, "/", pr, container.CopyToContainerOptions{})
	pr.Close()
	// A daemon-side failure closes the pipe under the packer, so a pipe
	// error here is an effect, not the cause.
	if err := <-packErr; err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("failed to pack %s: %w", hostPath, err)
	}
	if copyErr != nil {
		return fmt.Errorf("failed to copy %s into container %s: %w", hostPath, containerName, copyErr)
	}
	return nil
}

// packCopyArchive writes hostPath into a tar stream so that it lands at the
// container path dst (relative to /), emitting headers for every missing
// parent directory first.
func packCopyArchive(w io.Writer, hostPath string, info os.FileInfo, dst string) error {
	tw := tar.NewWriter(w)

	if dir := path.Dir(dst); dir != "." {
		prefix := ""
		for _, part := range strings.Split(dir, "/") {
			prefix = path.Join(prefix, part)
			hdr := &tar.Header{Typeflag: tar.TypeDir, Name: prefix + "/", Mode: 0o755, ModTime: info.ModTime()}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("failed to write tar header for %s: %w", prefix, err)
			}
		}
	}

	if !info.IsDir() {
		if err := packFile(tw, hostPath, dst, info); err != nil {
			return err
		}
		return tw.Close()
	}

	err := filepath.Walk(hostPath, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostPath, p)
		if err != nil {
			return err
		}
		name := dst
		if rel != "." {
			name = dst + "/" + filepath.ToSlash(rel)
		}
		if fi.IsDir() {
			hdr := &tar.Header{Typeflag: tar.TypeDir, Name: name + "/", Mode: 0o755, ModTime: fi.ModTime()}
			return tw.WriteHeader(hdr)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		return packFile(tw, p, name, fi)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

func packFile(tw *tar.Writer, hostPath, name string, info os.FileInfo) error {
	f, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", hostPath, err)
	}
	defer f.Close()

	hdr := &tar.Header{
		Name:    name,
		Mode:    int64(info.Mode().Perm()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s into copy stream: %w", name, err)
	}
	return nil
}
