package diskapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/imroc/req/v3"
)

// transferClient moves bytes against resolved hrefs. Hrefs are self
// authorizing, so this client carries no OAuth header.
var transferClient = req.C().
	SetUserAgent("disksync").
	SetTimeout(10 * time.Minute)

// UploadTo PUTs the file at filePath to a resolved upload href.
//
// Plain net/http instead of the req request builder: the href endpoints
// require an accurate Content-Length on the PUT, and the builder's body
// handling either buffers the whole file or drops the length.
func UploadTo(ctx context.Context, href string, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, href, file)
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	httpReq.ContentLength = info.Size()
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload %q: %w (%v)", filePath, ErrConnectivity, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("upload %q: unexpected status %s", filePath, resp.Status)
	}
}

// DownloadFrom GETs a resolved download href into filePath, replacing any
// existing content. Bytes land in a `~`-prefixed sibling first (the reserved
// prefix keeps it out of listings) and are renamed into place only on
// success, so a failed download never clobbers the existing file.
func DownloadFrom(ctx context.Context, href string, filePath string) error {
	tmpPath := filepath.Join(filepath.Dir(filePath), "~"+filepath.Base(filePath))

	resp, err := transferClient.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		SetOutputFile(tmpPath).
		Get(href)

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download %q: %w (%v)", filePath, ErrConnectivity, err)
	}

	if resp.IsErrorState() {
		// SetOutputFile wrote the error body into tmpPath
		os.Remove(tmpPath)
		return fmt.Errorf("download %q: unexpected status %s", filePath, resp.GetStatus())
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download %q: %w", filePath, err)
	}

	return nil
}
