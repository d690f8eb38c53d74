package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL      = "https://api.cloudinary.com"
	defaultDeliveryURL = "https://res.cloudinary.com"
	maxFetchBytes      = 64 << 20
	maxErrorBodyBytes  = 4 << 10
)

type Config struct {
	CloudName   string
	APIKey      string
	APISecret   string
	APIURL      string
	DeliveryURL string
	Timeout     time.Duration
}

type Client struct {
	cloudName   string
	apiKey      string
	apiSecret   string
	apiURL      string
	deliveryURL string
	httpClient  *http.Client
	now         func() time.Time
}

// Asset is the service's record of an uploaded image.
type Asset struct {
	PublicID  string `json:"public_id"`
	Version   int64  `json:"version"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
	SecureURL string `json:"secure_url"`
}

// Fetched is the outcome of a delivery request. Body is only set for 2xx.
type Fetched struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (f Fetched) OK() bool {
	return f.StatusCode >= 200 && f.StatusCode < 300
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	deliveryURL := strings.TrimRight(strings.TrimSpace(cfg.DeliveryURL), "/")
	if deliveryURL == "" {
		deliveryURL = defaultDeliveryURL
	}

	return &Client{
		cloudName:   strings.TrimSpace(cfg.CloudName),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		apiSecret:   strings.TrimSpace(cfg.APISecret),
		apiURL:      apiURL,
		deliveryURL: deliveryURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

func (c *Client) checkCredentials() error {
	var missing []string
	if c.cloudName == "" {
		missing = append(missing, "CLOUD_NAME")
	}
	if c.apiKey == "" {
		missing = append(missing, "API_KEY")
	}
	if c.apiSecret == "" {
		missing = append(missing, "API_SECRET")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Err: fmt.Errorf("%w: missing %s", ErrMissingCredentials, strings.Join(missing, ", "))}
	}
	return nil
}

// Upload stores data under publicID, forwarding quality as an incoming
// transformation.
func (c *Client) Upload(ctx context.Context, data []byte, publicID string, quality int) (Asset, error) {
	if err := c.checkCredentials(); err != nil {
		return Asset{}, err
	}
	if len(data) == 0 {
		return Asset{}, &RemoteCallError{Op: "upload", Err: errors.New("image data is empty")}
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if quality > 0 {
		params["transformation"] = "q_" + strconv.Itoa(quality)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range c.signedParams(params) {
		if err := mw.WriteField(k, v); err != nil {
			return Asset{}, &RemoteCallError{Op: "upload", Err: fmt.Errorf("write form field %s: %w", k, err)}
		}
	}
	part, err := mw.CreateFormFile("file", publicID)
	if err != nil {
		return Asset{}, &RemoteCallError{Op: "upload", Err: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := part.Write(data); err != nil {
		return Asset{}, &RemoteCallError{Op: "upload", Err: fmt.Errorf("write form file: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return Asset{}, &RemoteCallError{Op: "upload", Err: fmt.Errorf("close multipart body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("image/upload"), &body)
	if err != nil {
		return Asset{}, &RemoteCallError{Op: "upload", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var asset Asset
	if err := c.doJSON(req, "upload", &asset); err != nil {
		return Asset{}, err
	}
	if asset.PublicID == "" {
		asset.PublicID = publicID
	}
	return asset, nil
}

// Destroy deletes an uploaded asset. A "not found" result is not an error.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if err := c.checkCredentials(); err != nil {
		return err
	}

	form := url.Values{}
	for k, v := range c.signedParams(map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}) {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("image/destroy"), strings.NewReader(form.Encode()))
	if err != nil {
		return &RemoteCallError{Op: "destroy", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		Result string `json:"result"`
	}
	if err := c.doJSON(req, "destroy", &out); err != nil {
		return err
	}
	if out.Result != "ok" && out.Result != "not found" {
		return &RemoteCallError{Op: "destroy", Err: fmt.Errorf("unexpected result %q", out.Result)}
	}
	return nil
}

// Fetch downloads url. Non-2xx responses are returned as data, not errors.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Fetched{}, &RemoteCallError{Op: "fetch", Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Fetched{}, &RemoteCallError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	out := Fetched{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if !out.OK() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return out, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return Fetched{}, &RemoteCallError{Op: "fetch", StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	out.Body = data
	return out, nil
}

func (c *Client) endpoint(action string) string {
	return fmt.Sprintf("%s/v1_1/%s/%s", c.apiURL, url.PathEscape(c.cloudName), action)
}

func (c *Client) signedParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	out["signature"] = sign(params, c.apiSecret)
	out["api_key"] = c.apiKey
	return out
}

// sign follows the service's request signing: sorted key=value pairs joined by
// "&", the secret appended, SHA-1 hex encoded.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) doJSON(req *http.Request, op string, into any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteCallError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &ConfigurationError{Err: fmt.Errorf("%s rejected credentials: status=%d: %s", op, resp.StatusCode, msg)}
		}
		return &RemoteCallError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(into); err != nil {
		return &RemoteCallError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return "no error details"
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
