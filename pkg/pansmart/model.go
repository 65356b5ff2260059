package pansmart

import (
	"encoding/json"
	"strconv"
)

// apiRequest is the common request envelope for /App endpoints. Device
// status calls put user/device fields at the top level instead of params,
// so everything is optional.
type apiRequest struct {
	ID        int64          `json:"id"`
	UIVersion float64        `json:"uiVersion,omitempty"`
	UsrID     string         `json:"usrId,omitempty"`
	DeviceID  string         `json:"deviceId,omitempty"`
	Token     string         `json:"token,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// apiEnvelope is the common response shape. A non-nil Error means the call
// failed regardless of the HTTP status code.
type apiEnvelope struct {
	Error   json.RawMessage `json:"error,omitempty"`
	Results json.RawMessage `json:"results,omitempty"`
}

func (e apiEnvelope) errString() string {
	if e.Error == nil {
		return ""
	}
	return string(e.Error)
}

type loginResults struct {
	Token        string `json:"token,omitempty"`
	UsrID        string `json:"usrId,omitempty"`
	FamilyID     string `json:"familyId,omitempty"`
	RealFamilyID string `json:"realFamilyId,omitempty"`
	SSID         string `json:"ssId,omitempty"`
}

type bindDevResults struct {
	DevList []deviceRecord `json:"devList"`
}

type deviceRecord struct {
	DeviceID string          `json:"deviceId"`
	Params   deviceRecParams `json:"params"`
}

type deviceRecParams struct {
	DevSubTypeID string `json:"devSubTypeId"`
	DeviceMNO    string `json:"deviceMNO"`
	DeviceName   string `json:"deviceName"`
}

// DeviceInfo is the subset of a devList record the device model needs.
type DeviceInfo struct {
	DeviceID string
	SubType  string
	MNO      string
	Name     string
}

// ToFloat coerces a status value to float64. Vendor status maps mix JSON
// numbers and numeric strings; anything else reports ok=false.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// statusEquals reports whether a status value equals the given integer,
// tolerating the number/string mix the vendor returns.
func statusEquals(value any, n int) bool {
	f, ok := ToFloat(value)
	return ok && f == float64(n)
}
