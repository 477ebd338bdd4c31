package pinning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/five82/notechain/internal/apperr"
)

// Gateway is the pinning service as the controller sees it.
type Gateway interface {
	Pin(ctx context.Context, filename string, r io.Reader) (string, error)
	Unpin(ctx context.Context, contentID string) error
	GatewayURL(contentID string) string
	Download(ctx context.Context, contentID string, w io.Writer) (int64, error)
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

const (
	DefaultAPIURL     = "https://api.pinata.cloud"
	DefaultGatewayURL = "https://gateway.pinata.cloud"
	defaultUserAgent  = "notechain/0.1"

	pinPath   = "/pinning/pinFileToIPFS"
	unpinPath = "/pinning/unpin/"
)

// Credentials authenticate against the pinning API. A JWT takes precedence
// over the key pair.
type Credentials struct {
	APIKey    string
	APISecret string
	JWT       string
}

// Options configure a Client.
type Options struct {
	APIURL      string
	GatewayURL  string
	Credentials Credentials
	HTTPClient  *http.Client
}

// Client talks to the pinning HTTP API.
type Client struct {
	apiURL     *url.URL
	gatewayURL *url.URL
	creds      Credentials
	http       *http.Client
	userAgent  string
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// NewClient builds a Client. Empty URLs fall back to the Pinata defaults.
// Requests carry no client-side timeout; callers bound them with ctx.
func NewClient(opts Options) (*Client, error) {
	api, err := parseBaseURL(opts.APIURL, DefaultAPIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api_url: %w", err)
	}
	gw, err := parseBaseURL(opts.GatewayURL, DefaultGatewayURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway_url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiURL:     api,
		gatewayURL: gw,
		creds:      opts.Credentials,
		http:       httpClient,
		userAgent:  defaultUserAgent,
	}, nil
}

// Pin uploads the contents of r as a single multipart request and returns
// the content identifier reported by the service.
func (c *Client) Pin(ctx context.Context, filename string, r io.Reader) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "", apperr.Validation("select a file first")
	}

	body, contentType := multipartBody(name, r)
	defer func() { _ = body.Close() }()

	reqURL := c.apiURL.ResolveReference(&url.URL{Path: pinPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), body)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrPinning, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	c.decorate(req)

	var payload pinResponse
	if err := c.send(ctx, req, &payload); err != nil {
		return "", err
	}
	cid := strings.TrimSpace(payload.IpfsHash)
	if cid == "" {
		return "", apperr.Wrap(apperr.ErrPinning, errors.New("pinning response has no IpfsHash"))
	}
	return cid, nil
}

// Unpin removes a pin created by Pin.
func (c *Client) Unpin(ctx context.Context, contentID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	cid := strings.TrimSpace(contentID)
	if cid == "" {
		return apperr.Validation("missing file hash")
	}
	reqURL := c.apiURL.ResolveReference(&url.URL{Path: unpinPath + url.PathEscape(cid)})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL.String(), nil)
	if err != nil {
		return apperr.Wrap(apperr.ErrPinning, fmt.Errorf("create request: %w", err))
	}
	c.decorate(req)
	return c.send(ctx, req, nil)
}

// GatewayURL returns <gateway>/ipfs/<cid>, or "" for an empty cid.
func (c *Client) GatewayURL(contentID string) string {
	cid := strings.TrimSpace(contentID)
	if c == nil || cid == "" {
		return ""
	}
	return c.gatewayURL.ResolveReference(&url.URL{Path: "/ipfs/" + cid}).String()
}

// Download streams the content behind cid into w and returns the bytes
// written.
func (c *Client) Download(ctx context.Context, contentID string, w io.Writer) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	target := c.GatewayURL(contentID)
	if target == "" {
		return 0, apperr.Validation("missing file hash")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrPinning, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportErr(ctx, fmt.Errorf("download %s: %w", contentID, err))
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return 0, apperr.Wrap(apperr.ErrPinning, fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, contentID))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, transportErr(ctx, fmt.Errorf("download %s: %w", contentID, err))
	}
	return n, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if jwt := strings.TrimSpace(c.creds.JWT); jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
		return
	}
	if key := strings.TrimSpace(c.creds.APIKey); key != "" {
		req.Header.Set("pinata_api_key", key)
		req.Header.Set("pinata_secret_api_key", strings.TrimSpace(c.creds.APISecret))
	}
}

func (c *Client) send(ctx context.Context, req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return transportErr(ctx, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Wrap(apperr.ErrPinning, fmt.Errorf("pinning api %s returned status %d: %s",
			req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Wrap(apperr.ErrPinning, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// multipartBody streams r as the "file" part of a multipart form.
func multipartBody(filename string, r io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func transportErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.ErrTimeout, err)
	}
	return apperr.Wrap(apperr.ErrPinning, err)
}

func parseBaseURL(raw, fallback string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
