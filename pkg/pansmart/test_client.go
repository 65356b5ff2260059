package pansmart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"go.uber.org/zap"
)

// FakeCloud is an in-process stand-in for the vendor cloud, serving the five
// App endpoints plus the device web-session page over httptest.
type FakeCloud struct {
	Server *httptest.Server

	mu            sync.Mutex
	failGetToken  bool
	failSetStatus bool
	token         string
	devList       []deviceRecord
	statusByID    map[string]map[string]any
	lastSubmitted map[string]map[string]any
	hits          map[string]int
}

func NewFakeCloud() *FakeCloud {
	fc := &FakeCloud{
		token:         "fake-token-0001",
		statusByID:    map[string]map[string]any{},
		lastSubmitted: map[string]map[string]any{},
		hits:          map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/App/UsrGetToken", fc.handleGetToken)
	mux.HandleFunc("/App/UsrLogin", fc.handleLogin)
	mux.HandleFunc("/App/UsrGetBindDevInfo", fc.handleBindDevInfo)
	mux.HandleFunc("/App/FDevGetStatusInfo", fc.handleGetStatus)
	mux.HandleFunc("/App/FDevSetStatusInfo", fc.handleSetStatus)
	mux.HandleFunc("/ca/cn/", fc.handleWebSession)
	fc.Server = httptest.NewServer(mux)
	return fc
}

func (fc *FakeCloud) Close() {
	fc.Server.Close()
}

// NewTestClient returns a Client wired against this fake cloud.
func (fc *FakeCloud) NewTestClient() *Client {
	return NewClientWithBaseURL(fc.Server.URL, fc.Server.Client(), zap.NewNop())
}

func (fc *FakeCloud) FailGetToken(fail bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.failGetToken = fail
}

func (fc *FakeCloud) FailSetStatus(fail bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.failSetStatus = fail
}

// AddDevice registers a devList record and its full raw status.
func (fc *FakeCloud) AddDevice(deviceID, subType, name string, status map[string]any) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.devList = append(fc.devList, deviceRecord{
		DeviceID: deviceID,
		Params: deviceRecParams{
			DevSubTypeID: subType,
			DeviceMNO:    "00000001",
			DeviceName:   name,
		},
	})
	fc.statusByID[deviceID] = status
}

func (fc *FakeCloud) Hits(endpoint string) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.hits[endpoint]
}

func (fc *FakeCloud) LastSubmitted(deviceID string) map[string]any {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lastSubmitted[deviceID]
}

func (fc *FakeCloud) count(endpoint string) {
	fc.mu.Lock()
	fc.hits[endpoint]++
	fc.mu.Unlock()
}

func writeResults(w http.ResponseWriter, results any) {
	payload, _ := json.Marshal(results)
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{"results": payload})
}

func writeError(w http.ResponseWriter, message string) {
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

func (fc *FakeCloud) handleGetToken(w http.ResponseWriter, r *http.Request) {
	fc.count("UsrGetToken")
	fc.mu.Lock()
	fail := fc.failGetToken
	token := fc.token
	fc.mu.Unlock()
	if fail {
		writeError(w, "token unavailable")
		return
	}
	w.Header().Set("Set-Cookie", "JSESSIONID=login-cookie; Path=/")
	writeResults(w, map[string]any{"token": token})
}

func (fc *FakeCloud) handleLogin(w http.ResponseWriter, r *http.Request) {
	fc.count("UsrLogin")
	var body apiRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Set-Cookie", "JSESSIONID=session-cookie; Path=/")
	writeResults(w, map[string]any{
		"usrId":        "usr-001",
		"familyId":     "fam-001",
		"realFamilyId": "real-fam-001",
		"ssId":         "ssid-001",
	})
}

func (fc *FakeCloud) handleBindDevInfo(w http.ResponseWriter, r *http.Request) {
	fc.count("UsrGetBindDevInfo")
	fc.mu.Lock()
	list := make([]deviceRecord, len(fc.devList))
	copy(list, fc.devList)
	fc.mu.Unlock()
	writeResults(w, map[string]any{"devList": list})
}

func (fc *FakeCloud) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	fc.count("FDevGetStatusInfo")
	var body apiRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	fc.mu.Lock()
	status, ok := fc.statusByID[body.DeviceID]
	fc.mu.Unlock()
	if !ok {
		writeError(w, "unknown device")
		return
	}
	writeResults(w, status)
}

func (fc *FakeCloud) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	fc.count("FDevSetStatusInfo")
	var body apiRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.failSetStatus {
		writeError(w, "set rejected")
		return
	}
	fc.lastSubmitted[body.DeviceID] = body.Params
	if status, ok := fc.statusByID[body.DeviceID]; ok {
		for key, value := range body.Params {
			if _, ok := status[key]; ok {
				status[key] = value
			}
		}
	}
	writeResults(w, map[string]any{"result": "ok"})
}

func (fc *FakeCloud) handleWebSession(w http.ResponseWriter, r *http.Request) {
	fc.count("WebSession")
	w.Header().Set("Set-Cookie", "DEVSESSION=device-cookie; Path=/")
	w.WriteHeader(http.StatusOK)
}

// TestCloudService is an in-memory CloudService for actor-level tests. It
// keeps full raw statuses per device id and applies patches the way the real
// backend would.
type TestCloudService struct {
	mu        sync.Mutex
	statuses  map[string]map[string]any
	infos     []DeviceInfo
	devices   map[string]Device
	lastPatch map[string]map[string]any
	listCalls int

	AuthErr error
	ListErr error
}

func NewTestCloudService() *TestCloudService {
	return &TestCloudService{
		statuses:  map[string]map[string]any{},
		devices:   map[string]Device{},
		lastPatch: map[string]map[string]any{},
	}
}

func (t *TestCloudService) AddFridge(deviceID, subType, name string, status map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.infos = append(t.infos, DeviceInfo{DeviceID: deviceID, SubType: subType, Name: name})
	t.statuses[deviceID] = status
}

func (t *TestCloudService) UserID() string { return "usr-test" }
func (t *TestCloudService) SSID() string   { return "ssid-test" }
func (t *TestCloudService) Close()         {}

func (t *TestCloudService) Authenticate(_ context.Context, _, _, _ string) error {
	return t.AuthErr
}

func (t *TestCloudService) ListDevices(_ context.Context) (map[string]Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listCalls++
	if t.ListErr != nil {
		return nil, t.ListErr
	}
	devices := make(map[string]Device, len(t.infos))
	for _, info := range t.infos {
		device, err := NewFridgeDevice(info, t, nil, "")
		if err != nil {
			return nil, err
		}
		devices[info.DeviceID] = device
	}
	t.devices = devices
	return devices, nil
}

func (t *TestCloudService) Device(deviceID string) (Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	device, ok := t.devices[deviceID]
	return device, ok
}

func (t *TestCloudService) FetchDeviceStatus(_ context.Context, deviceID string) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	device, ok := t.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device status: unknown device %s", deviceID)
	}
	device.SetRawStatus(t.statuses[deviceID])
	return device.ParsedStatus(), nil
}

func (t *TestCloudService) SetDeviceStatus(_ context.Context, deviceID string, updates map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	device, ok := t.devices[deviceID]
	if !ok {
		return fmt.Errorf("set status: unknown device %s", deviceID)
	}
	status := t.statuses[deviceID]
	for key, value := range updates {
		if _, ok := status[key]; ok {
			status[key] = value
		}
	}
	t.lastPatch[deviceID] = updates
	device.ApplyLocal(updates)
	return nil
}

func (t *TestCloudService) LastPatch(deviceID string) map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPatch[deviceID]
}

func (t *TestCloudService) ListCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listCalls
}
