package pansmart

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// fridgeModels maps a fridge sub-type to its capability manifest. Labels are
// the vendor app's original ones.
var fridgeModels = map[string]*Manifest{
	"Fridge-11": {
		Selects: []SelectDef{
			{
				UniqueID: "mode",
				Key:      "mode",
				Name:     "模式",
				Icon:     "mdi:tune",
				Options: []SelectOption{
					{Key: "quickFreeze", Name: "速冻"},
					{Key: "vacation", Name: "假期模式"},
					{Key: "quickicing", Name: "快速制冰"},
					{Key: "icingStop", Name: "制冰停止"},
					{Key: "icingDeice", Name: "制冰清洁"},
				},
			},
		},
		Sensors: []SensorDef{
			{UniqueID: "pc_temp_current", Name: "冷藏室当前温度", Key: "PCTempCur", Unit: "°C", Icon: "mdi:thermometer"},
			{UniqueID: "fc_temp_current", Name: "冷冻室当前温度", Key: "FCTempCur", Unit: "°C", Icon: "mdi:thermometer"},
			{UniqueID: "scb1_temp_current", Name: "软冻室当前温度", Key: "SCB1TempCur", Unit: "°C", Icon: "mdi:thermometer"},
		},
		Numbers: []NumberDef{
			{UniqueID: "pc_temp_set", Name: "冰箱设定温度", Key: "PCTempSet", Unit: "°C", Min: 0, Max: 10, Step: 1},
			{UniqueID: "fc_temp_set", Name: "冷冻室设定温度", Key: "FCTempSet", Unit: "°C", Min: -20, Max: 0, Step: 1},
			{UniqueID: "scb1_temp_set", Name: "软冻室设定温度", Key: "SCB1TempSet", Unit: "°C", Min: -20, Max: 10, Step: 1},
		},
		DefaultParams: map[string]any{
			"PCTempSet":    4,
			"FCTempSet":    -20,
			"SCS1TempSet":  0,
			"SCS2TempSet":  0,
			"SCB1TempSet":  -5,
			"SCB2TempSet":  0,
			"quickFreeze":  0,
			"vacation":     0,
			"quickicing":   0,
			"icingStop":    0,
			"icingDeice":   0,
			"ecoNaviSet":   0,
			"freshFrozen":  0,
			"nanoe":        0,
			"zhencaiSet":   0,
			"silver":       0,
			"preservation": 0,
			"RAModeCur":    0,
			"SAModeCur":    0,
			"isTodoLimit":  0,
		},
	},
}

// FridgeDevice is the refrigerator family. Its web session lives behind a
// per-model HTML endpoint; the session cookie that page sets is required on
// every status call.
type FridgeDevice struct {
	*BaseDevice
}

func NewFridgeDevice(info DeviceInfo, session SessionInfo, httpClient *http.Client, baseURL string) (Device, error) {
	manifest, ok := fridgeModels[info.SubType]
	if !ok {
		return nil, fmt.Errorf("unknown fridge model %q", info.SubType)
	}
	return &FridgeDevice{
		BaseDevice: NewBaseDevice(info, session, httpClient, baseURL, manifest),
	}, nil
}

func (d *FridgeDevice) DeviceCookie(ctx context.Context) string {
	query := url.Values{}
	query.Set("deviceId", d.ID())
	query.Set("usrId", d.session.UserID())
	query.Set("SSID", d.session.SSID())
	query.Set("devType", d.Type())
	query.Set("deviceName", d.Name())
	webURL := fmt.Sprintf("%s/ca/cn/%s/%s/index.html?%s", d.baseURL, d.Type(), d.SubType(), query.Encode())
	return d.fetchWebSessionCookie(ctx, webURL)
}

// ensure interface compliance
var _ Device = (*FridgeDevice)(nil)

func init() {
	RegisterDeviceType("0100", NewFridgeDevice)
}
