package pansmart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production cloud endpoint.
const DefaultBaseURL = "https://app.psmartcloud.com"

const userAgent = "SmartApp"

// APIError is a protocol-level failure: the response body carried an error
// field, regardless of HTTP status.
type APIError struct {
	Endpoint string
	Payload  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error: %s", e.Endpoint, e.Payload)
}

// CloudService is the session-scoped surface of the vendor cloud API.
type CloudService interface {
	SessionInfo
	Authenticate(ctx context.Context, mac, username, passwordHash string) error
	ListDevices(ctx context.Context) (map[string]Device, error)
	FetchDeviceStatus(ctx context.Context, deviceID string) (map[string]any, error)
	SetDeviceStatus(ctx context.Context, deviceID string, updates map[string]any) error
	Device(deviceID string) (Device, bool)
	Close()
}

// ensure interface compliance
var _ CloudService = (*Client)(nil)

// Client owns the HTTP session against the cloud: the authentication
// handshake, the device table and the session cookie threaded through every
// request. The device table is fully replaced on each enumeration.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	logger     *zap.Logger

	messageID atomic.Int64

	mu           sync.Mutex
	cookie       string
	userID       string
	familyID     string
	realFamilyID string
	ssid         string
	devices      map[string]Device
}

func NewClient(logger *zap.Logger) *Client {
	return NewClientWithBaseURL(DefaultBaseURL, &http.Client{Timeout: 30 * time.Second}, logger)
}

func NewClientWithBaseURL(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	host := baseURL
	if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		host:       host,
		logger:     logger,
		devices:    map[string]Device{},
	}
}

func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) SSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ssid
}

func (c *Client) Device(deviceID string) (Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	device, ok := c.devices[deviceID]
	return device, ok
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) nextMessageID() int64 {
	return c.messageID.Add(1)
}

// post sends one App endpoint call and returns the decoded envelope plus the
// first segment of any Set-Cookie header. A body-level error field is
// returned as *APIError.
func (c *Client) post(ctx context.Context, endpoint string, body apiRequest, xtoken, cookie string) (*apiEnvelope, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: marshal request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/App/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Host = c.host
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Prefer", c.baseURL)
	if xtoken != "" || cookie != "" {
		req.Header.Set("xtoken", xtoken)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	if envelope.Error != nil {
		return nil, "", &APIError{Endpoint: endpoint, Payload: envelope.errString()}
	}
	return &envelope, firstCookieSegment(resp.Header.Get("Set-Cookie")), nil
}

// Authenticate performs the two-step token/login handshake. No session state
// is retained on failure.
func (c *Client) Authenticate(ctx context.Context, mac, username, passwordHash string) error {
	tokenEnv, loginCookie, err := c.post(ctx, "UsrGetToken", apiRequest{
		ID:        c.nextMessageID(),
		UIVersion: 4.0,
		Params:    map[string]any{"usrId": username},
	}, "", "")
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	var tokenResults loginResults
	if err := json.Unmarshal(tokenEnv.Results, &tokenResults); err != nil {
		return fmt.Errorf("get token: decode results: %w", err)
	}

	loginEnv, newCookie, err := c.post(ctx, "UsrLogin", apiRequest{
		ID:        c.nextMessageID(),
		UIVersion: 4.0,
		Params: map[string]any{
			"teleId": mac,
			"usrId":  username,
			"pwd":    EncodePassword(username, passwordHash, tokenResults.Token),
		},
	}, "", loginCookie)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	var results loginResults
	if err := json.Unmarshal(loginEnv.Results, &results); err != nil {
		return fmt.Errorf("login: decode results: %w", err)
	}

	c.mu.Lock()
	if newCookie != "" {
		c.cookie = newCookie
	} else {
		c.cookie = loginCookie
	}
	c.userID = results.UsrID
	c.familyID = results.FamilyID
	c.realFamilyID = results.RealFamilyID
	c.ssid = results.SSID
	c.mu.Unlock()

	c.logger.Debug("cloud login ok",
		zap.String("usrId", results.UsrID),
		zap.String("familyId", results.FamilyID),
		zap.String("realFamilyId", results.RealFamilyID))
	return nil
}

// ListDevices enumerates the bound devices and fully replaces the client's
// device table. Records with an unrecognized type code are skipped.
func (c *Client) ListDevices(ctx context.Context) (map[string]Device, error) {
	c.mu.Lock()
	cookie := c.cookie
	params := map[string]any{
		"usrId":        c.userID,
		"realFamilyId": c.realFamilyID,
		"familyId":     c.familyID,
	}
	c.mu.Unlock()

	envelope, _, err := c.post(ctx, "UsrGetBindDevInfo", apiRequest{
		ID:        c.nextMessageID(),
		UIVersion: 4.0,
		Params:    params,
	}, cookie, cookie)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var results bindDevResults
	if err := json.Unmarshal(envelope.Results, &results); err != nil {
		return nil, fmt.Errorf("list devices: decode results: %w", err)
	}

	devices := make(map[string]Device)
	for _, record := range results.DevList {
		segments := strings.Split(record.DeviceID, "_")
		if len(segments) < 2 {
			c.logger.Warn("malformed device id", zap.String("deviceId", record.DeviceID))
			continue
		}
		typeCode := segments[1]
		constructor, ok := lookupDeviceType(typeCode)
		if !ok {
			c.logger.Debug("skipping unsupported device type",
				zap.String("deviceId", record.DeviceID), zap.String("type", typeCode))
			continue
		}
		device, err := constructor(DeviceInfo{
			DeviceID: record.DeviceID,
			SubType:  record.Params.DevSubTypeID,
			MNO:      record.Params.DeviceMNO,
			Name:     record.Params.DeviceName,
		}, c, c.httpClient, c.baseURL)
		if err != nil {
			c.logger.Warn("could not build device",
				zap.String("deviceId", record.DeviceID), zap.Error(err))
			continue
		}
		devices[record.DeviceID] = device
	}

	c.mu.Lock()
	c.devices = devices
	c.mu.Unlock()
	return devices, nil
}

// FetchDeviceStatus fetches and stores the device's full status. A missing
// device cookie is a hard failure for this call. The returned map is the
// freshly parsed status.
func (c *Client) FetchDeviceStatus(ctx context.Context, deviceID string) (map[string]any, error) {
	device, ok := c.Device(deviceID)
	if !ok {
		return nil, fmt.Errorf("device status: unknown device %s", deviceID)
	}
	deviceCookie := device.DeviceCookie(ctx)
	if deviceCookie == "" {
		return nil, fmt.Errorf("device status: no web session for %s", deviceID)
	}

	c.mu.Lock()
	cookie := c.cookie
	userID := c.userID
	c.mu.Unlock()

	envelope, _, err := c.post(ctx, "FDevGetStatusInfo", apiRequest{
		ID:       c.nextMessageID(),
		UsrID:    userID,
		DeviceID: deviceID,
		Token:    device.Token(),
	}, cookie, deviceCookie)
	if err != nil {
		return nil, fmt.Errorf("device status: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(envelope.Results, &raw); err != nil {
		return nil, fmt.Errorf("device status: decode results: %w", err)
	}
	device.SetRawStatus(raw)
	return device.ParsedStatus(), nil
}

// SetDeviceStatus submits a partial update. The cloud requires a full-object
// submission, so the current status is fetched first and only the keys it
// already carries are overlaid. The overlay is mirrored into the device's
// local status before submission; a failed submit leaves that local overlay
// in place.
func (c *Client) SetDeviceStatus(ctx context.Context, deviceID string, updates map[string]any) error {
	device, ok := c.Device(deviceID)
	if !ok {
		return fmt.Errorf("set status: unknown device %s", deviceID)
	}
	deviceCookie := device.DeviceCookie(ctx)
	if deviceCookie == "" {
		return fmt.Errorf("set status: no web session for %s", deviceID)
	}

	current, err := c.FetchDeviceStatus(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	merged := make(map[string]any, len(current))
	for key, value := range current {
		merged[key] = value
	}
	for key, value := range updates {
		if _, ok := merged[key]; ok {
			merged[key] = value
		}
	}
	device.ApplyLocal(updates)

	c.mu.Lock()
	cookie := c.cookie
	userID := c.userID
	c.mu.Unlock()

	_, _, err = c.post(ctx, "FDevSetStatusInfo", apiRequest{
		ID:       c.nextMessageID(),
		UsrID:    userID,
		DeviceID: deviceID,
		Token:    device.Token(),
		Params:   merged,
	}, cookie, deviceCookie)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}
