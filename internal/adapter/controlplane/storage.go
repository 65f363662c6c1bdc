package controlplane

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// Upload streams localPath to bucket under objectName.
func (c *Client) Upload(ctx context.Context, bucket, localPath, objectName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open upload file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat upload file: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.endpoint(uploadPath, bucket, objectName), file, true)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download streams objectName from bucket into destPath.
func (c *Client) Download(ctx context.Context, bucket, objectName, destPath string) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(downloadPath, bucket, objectName), nil, true)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}

	if _, err := io.Copy(dest, resp.Body); err != nil {
		_ = dest.Close()
		return fmt.Errorf("%w: download %s: %v", domain.ErrTransport, objectName, err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("%w: download %s: %v", domain.ErrTransport, objectName, err)
	}
	return nil
}

type listResponse struct {
	Files []string `json:"files"`
}

func (c *Client) List(ctx context.Context, bucket string) ([]string, error) {
	var out listResponse
	if err := c.getJSON(ctx, c.endpoint(listPath, bucket), &out); err != nil {
		return nil, err
	}
	if out.Files == nil {
		return []string{}, nil
	}
	return out.Files, nil
}
