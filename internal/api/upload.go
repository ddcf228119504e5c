package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
)

// BinarySource supplies the binary part of a multipart upload. Exactly
// two implementations exist: FileRef (filesystem-backed) and ByteBuffer
// (in-memory). Modeling the variants as a sum type makes the
// mutual-exclusion invariant structural — a caller cannot supply both.
type BinarySource interface {
	// open returns the content reader and the filename reported in the
	// multipart part header.
	open() (io.ReadCloser, string, error)
}

// FileRef is a BinarySource backed by a file on disk.
type FileRef struct {
	Path string
}

func (f FileRef) open() (io.ReadCloser, string, error) {
	if f.Path == "" {
		return nil, "", fmt.Errorf("%w: empty file path", ErrInvalidArgument)
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("api: opening upload file: %w", err)
	}

	return file, filepath.Base(f.Path), nil
}

// ByteBuffer is a BinarySource backed by an in-memory byte slice.
type ByteBuffer struct {
	Name string
	Data []byte
}

func (b ByteBuffer) open() (io.ReadCloser, string, error) {
	if len(b.Data) == 0 {
		return nil, "", fmt.Errorf("%w: empty byte buffer", ErrInvalidArgument)
	}

	name := b.Name
	if name == "" {
		name = "upload.bin"
	}

	return io.NopCloser(bytes.NewReader(b.Data)), name, nil
}

// UploadImage builds and sends an authenticated multipart request
// combining the scalar fields with one binary part named fieldName,
// sourced from src. The upload is never retried — a replayed multipart
// body could double-apply the mutation server-side.
func (c *Client) UploadImage(
	ctx context.Context, method, path string, fields map[string]string,
	src BinarySource, fieldName string,
) (json.RawMessage, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no binary payload supplied", ErrInvalidArgument)
	}

	body, contentType, err := buildMultipart(fields, src, fieldName)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("multipart upload",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("field", fieldName),
		slog.Int("size", len(body)),
	)

	resp, err := c.do(ctx, method, path, contentType, body, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeBody(resp.Body)
}

// buildMultipart assembles the multipart body: one text part per scalar
// field plus the single binary part. Returns the body and its content
// type (which carries the boundary).
func buildMultipart(fields map[string]string, src BinarySource, fieldName string) ([]byte, string, error) {
	content, name, err := src.open()
	if err != nil {
		return nil, "", err
	}
	defer content.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return nil, "", fmt.Errorf("api: writing multipart field %s: %w", key, err)
		}
	}

	part, err := w.CreateFormFile(fieldName, name)
	if err != nil {
		return nil, "", fmt.Errorf("api: creating multipart file part: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("api: copying upload content: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("api: finalizing multipart body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
