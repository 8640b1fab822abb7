package wal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressSegment rewrites the file at path as zstd, removes the original,
// and returns the stored path and size. Already-compressed files pass
// through untouched.
func CompressSegment(path string) (string, int64, error) {
	if strings.HasSuffix(path, CompressedSuffix) {
		info, err := os.Stat(path)
		if err != nil {
			return "", 0, err
		}
		return path, info.Size(), nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open segment: %w", err)
	}
	defer src.Close()

	dstPath := path + CompressedSuffix
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create compressed segment: %w", err)
	}

	zw, err := zstd.NewWriter(dst)
	if err != nil {
		dst.Close()
		return "", 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		os.Remove(dstPath)
		return "", 0, fmt.Errorf("failed to compress segment: %w", err)
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", 0, fmt.Errorf("failed to flush compressed segment: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", 0, fmt.Errorf("failed to close compressed segment: %w", err)
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		return "", 0, err
	}
	if err := os.Remove(path); err != nil {
		return "", 0, fmt.Errorf("failed to remove uncompressed segment: %w", err)
	}
	return dstPath, info.Size(), nil
}

// DecompressSegmentTo stages the segment at src to dst in the plain form
// the server's restore_command expects, decompressing when needed.
func DecompressSegmentTo(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open segment: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create staged segment: %w", err)
	}

	var reader io.Reader = in
	if strings.HasSuffix(src, CompressedSuffix) {
		zr, err := zstd.NewReader(in)
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return fmt.Errorf("failed to stage segment: %w", err)
	}
	return out.Close()
}
