// Package diskapi is the HTTP SDK for the cloud disk REST API. It speaks the
// resources protocol: folder metadata and listings by path, a two-step
// transfer negotiation (resolve an href, then move bytes against it) and
// deletion by path.
package diskapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/imroc/req/v3"

	"github.com/disklab/disksync/internal/version"
)

const (
	DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"

	resourcesPath = "/resources"
	uploadPath    = "/resources/upload"
	downloadPath  = "/resources/download"

	// fields filter keeps listing payloads down to what the synchronizer needs
	listFields = "_embedded.items.name,_embedded.items.modified,_embedded.items.type"
)

// Client talks to the disk API on behalf of one OAuth token.
type Client struct {
	http *req.Client
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.http.SetBaseURL(url)
	}
}

// New creates a disk API client.
func New(token string, opts ...Option) *Client {
	client := req.C().
		SetBaseURL(DefaultBaseURL).
		SetCommonHeader("Authorization", "OAuth "+token).
		SetUserAgent("disksync/"+version.Version).
		SetCommonRetryCount(2).
		SetCommonRetryBackoffInterval(1*time.Second, 5*time.Second).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		SetTimeout(2 * time.Minute)

	c := &Client{http: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.GetTransport().CloseIdleConnections()
}

// CheckFolder queries folder metadata by path. Returns ErrFolderNotFound when
// the folder does not exist.
func (c *Client) CheckFolder(ctx context.Context, path string) error {
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetErrorResult(&apiErr).
		Get(resourcesPath)

	return wrapAPIError(resp, err, "check folder")
}

// CreateFolder creates an empty folder at path.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetErrorResult(&apiErr).
		Put(resourcesPath)

	if err := wrapAPIError(resp, err, "create folder"); err != nil {
		return err
	}

	slog.Info("remote folder created", "path", path)
	return nil
}

// EnsureFolder checks that the folder exists and creates it when the check
// reports it missing. Other check failures are returned as-is.
func (c *Client) EnsureFolder(ctx context.Context, path string) error {
	err := c.CheckFolder(ctx, path)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrFolderNotFound) {
		return c.CreateFolder(ctx, path)
	}
	return err
}

// ListFolder returns the items directly inside the folder at path.
func (c *Client) ListFolder(ctx context.Context, path string) ([]Resource, error) {
	var meta resourceMeta
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetQueryParam("fields", listFields).
		SetSuccessResult(&meta).
		SetErrorResult(&apiErr).
		Get(resourcesPath)

	if err := wrapAPIError(resp, err, "list folder"); err != nil {
		return nil, err
	}

	return meta.Embedded.Items, nil
}

// Delete removes the object at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetErrorResult(&apiErr).
		Delete(resourcesPath)

	return wrapAPIError(resp, err, "delete")
}

// TransferURL performs the capability negotiation call for path, returning
// the href against which the actual byte transfer runs. Overwrite is always
// requested so re-uploads replace the remote object.
func (c *Client) TransferURL(ctx context.Context, path string, dir TransferDirection) (string, error) {
	endpoint := uploadPath
	if dir == TransferDownload {
		endpoint = downloadPath
	}

	var link transferLink
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetQueryParam("overwrite", "true").
		SetSuccessResult(&link).
		SetErrorResult(&apiErr).
		Get(endpoint)

	if err := wrapAPIError(resp, err, "transfer url "+string(dir)); err != nil {
		return "", err
	}

	if link.Href == "" {
		return "", ErrNoTransferURL
	}
	return link.Href, nil
}
