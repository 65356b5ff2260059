package pansmart

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DeviceCookieTTL is how long a device web-session cookie stays valid.
const DeviceCookieTTL = 3600 * time.Second

const (
	EntitySelect = "select"
	EntitySensor = "sensor"
	EntityNumber = "number"
	EntitySwitch = "switch"
)

// SessionInfo exposes the session identifiers a device needs to build its
// web-session URL.
type SessionInfo interface {
	UserID() string
	SSID() string
}

type SelectOption struct {
	Key  string
	Name string
}

type SelectDef struct {
	UniqueID string
	Key      string
	Name     string
	Icon     string
	Options  []SelectOption
}

type SensorDef struct {
	UniqueID string
	Name     string
	Key      string
	Unit     string
	Icon     string
}

type NumberDef struct {
	UniqueID string
	Name     string
	Key      string
	Unit     string
	Icon     string
	Min      float64
	Max      float64
	Step     float64
}

type SwitchDef struct {
	UniqueID string
	Name     string
	Key      string
	Icon     string
}

// Manifest is the static capability table of a device sub-type. Parsed
// status always carries exactly the key set of DefaultParams.
type Manifest struct {
	Selects       []SelectDef
	Sensors       []SensorDef
	Numbers       []NumberDef
	Switches      []SwitchDef
	DefaultParams map[string]any
}

// EntityDescriptor tags one controllable or observable device attribute.
type EntityDescriptor struct {
	Type     string
	UniqueID string
	Name     string
	Key      string
	Unit     string
	Icon     string
	Min      float64
	Max      float64
	Step     float64
	Options  []SelectOption
}

// SelectItem is the live state of one option inside an exclusive group.
type SelectItem struct {
	Key    string
	Name   string
	Active bool
}

type Device interface {
	ID() string
	Type() string
	SubType() string
	Name() string
	Token() string
	RawStatus() map[string]any
	ParsedStatus() map[string]any
	SetRawStatus(raw map[string]any)
	ApplyLocal(updates map[string]any)
	// DeviceCookie returns the cached web-session cookie, fetching a new one
	// past the TTL. An empty string means the session could not be obtained;
	// callers must abort the operation rather than retry here.
	DeviceCookie(ctx context.Context) string
	Manifest() *Manifest
	Entities() []EntityDescriptor
	SwitchState(key string) bool
	NumberValue(key string) (float64, bool)
	SelectItems(groupKey string) map[string]SelectItem
}

// BaseDevice carries the behavior shared by every device kind: identity,
// raw/parsed status, the derived token and the cookie cache. Concrete kinds
// supply the capability manifest and the web-session URL.
type BaseDevice struct {
	id       string
	typeCode string
	subType  string
	mno      string
	name     string
	token    string

	session    SessionInfo
	httpClient *http.Client
	baseURL    string
	manifest   *Manifest

	mu            sync.Mutex
	raw           map[string]any
	parsed        map[string]any
	cookie        string
	cookieCreated time.Time
}

func NewBaseDevice(info DeviceInfo, session SessionInfo, httpClient *http.Client, baseURL string, manifest *Manifest) *BaseDevice {
	typeCode := ""
	if segments := strings.Split(info.DeviceID, "_"); len(segments) > 1 {
		typeCode = segments[1]
	}
	return &BaseDevice{
		id:         info.DeviceID,
		typeCode:   typeCode,
		subType:    info.SubType,
		mno:        info.MNO,
		name:       info.Name,
		token:      DeriveDeviceToken(info.DeviceID, typeCode),
		session:    session,
		httpClient: httpClient,
		baseURL:    baseURL,
		manifest:   manifest,
	}
}

func (d *BaseDevice) ID() string      { return d.id }
func (d *BaseDevice) Type() string    { return d.typeCode }
func (d *BaseDevice) SubType() string { return d.subType }
func (d *BaseDevice) MNO() string     { return d.mno }
func (d *BaseDevice) Name() string    { return d.name }
func (d *BaseDevice) Token() string   { return d.token }

func (d *BaseDevice) Manifest() *Manifest { return d.manifest }

func (d *BaseDevice) RawStatus() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyStatus(d.raw)
}

func (d *BaseDevice) ParsedStatus() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyStatus(d.parsed)
}

// SetRawStatus replaces the raw status and synchronously recomputes the
// parsed one: sub-type defaults back-filled, then overlaid with every raw
// key present in the default table. Keys outside the table are dropped.
func (d *BaseDevice) SetRawStatus(raw map[string]any) {
	parsed := make(map[string]any, len(d.manifest.DefaultParams))
	for key, value := range d.manifest.DefaultParams {
		parsed[key] = value
	}
	for key, value := range raw {
		if _, ok := d.manifest.DefaultParams[key]; ok {
			parsed[key] = value
		}
	}
	d.mu.Lock()
	d.raw = copyStatus(raw)
	d.parsed = parsed
	d.mu.Unlock()
}

// ApplyLocal overlays already-submitted values onto the parsed status so
// consumers see the new state without an extra status round trip. Only keys
// the parsed status already carries are touched.
func (d *BaseDevice) ApplyLocal(updates map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, value := range updates {
		if _, ok := d.parsed[key]; ok {
			d.parsed[key] = value
		}
	}
}

func (d *BaseDevice) SwitchState(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return statusEquals(d.parsed[key], 1)
}

func (d *BaseDevice) NumberValue(key string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	value, ok := d.parsed[key]
	if !ok {
		return 0, false
	}
	return ToFloat(value)
}

func (d *BaseDevice) SelectItems(groupKey string) map[string]SelectItem {
	items := make(map[string]SelectItem)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, group := range d.manifest.Selects {
		if group.Key != groupKey {
			continue
		}
		for _, option := range group.Options {
			items[option.Key] = SelectItem{
				Key:    option.Key,
				Name:   option.Name,
				Active: statusEquals(d.parsed[option.Key], 1),
			}
		}
		break
	}
	return items
}

// Entities returns the capability manifest as descriptors. Sensor and number
// entries are filtered to keys present in the current raw status; select and
// switch entries are always included.
func (d *BaseDevice) Entities() []EntityDescriptor {
	d.mu.Lock()
	raw := d.raw
	d.mu.Unlock()

	var entities []EntityDescriptor
	for _, sel := range d.manifest.Selects {
		entities = append(entities, EntityDescriptor{
			Type:     EntitySelect,
			UniqueID: d.id + "_" + sel.UniqueID,
			Name:     d.name + " " + sel.Name,
			Key:      sel.Key,
			Icon:     sel.Icon,
			Options:  sel.Options,
		})
	}
	for _, sw := range d.manifest.Switches {
		entities = append(entities, EntityDescriptor{
			Type:     EntitySwitch,
			UniqueID: d.id + "_" + sw.UniqueID,
			Name:     d.name + " " + sw.Name,
			Key:      sw.Key,
			Icon:     sw.Icon,
		})
	}
	for _, sensor := range d.manifest.Sensors {
		if _, ok := raw[sensor.Key]; !ok {
			continue
		}
		entities = append(entities, EntityDescriptor{
			Type:     EntitySensor,
			UniqueID: d.id + "_" + sensor.UniqueID,
			Name:     d.name + " " + sensor.Name,
			Key:      sensor.Key,
			Unit:     sensor.Unit,
			Icon:     sensor.Icon,
		})
	}
	for _, number := range d.manifest.Numbers {
		if _, ok := raw[number.Key]; !ok {
			continue
		}
		entities = append(entities, EntityDescriptor{
			Type:     EntityNumber,
			UniqueID: d.id + "_" + number.UniqueID,
			Name:     d.name + " " + number.Name,
			Key:      number.Key,
			Unit:     number.Unit,
			Icon:     number.Icon,
			Min:      number.Min,
			Max:      number.Max,
			Step:     number.Step,
		})
	}
	return entities
}

// fetchWebSessionCookie implements the shared cookie cache. url is the
// device-specific web-session endpoint built by the concrete kind.
func (d *BaseDevice) fetchWebSessionCookie(ctx context.Context, url string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cookie != "" && time.Since(d.cookieCreated) < DeviceCookieTTL {
		return d.cookie
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	cookie := firstCookieSegment(resp.Header.Get("Set-Cookie"))
	if cookie == "" {
		return ""
	}
	d.cookie = cookie
	d.cookieCreated = time.Now()
	return cookie
}

func firstCookieSegment(setCookie string) string {
	if setCookie == "" {
		return ""
	}
	return strings.SplitN(setCookie, ";", 2)[0]
}

func copyStatus(status map[string]any) map[string]any {
	if status == nil {
		return nil
	}
	out := make(map[string]any, len(status))
	for key, value := range status {
		out[key] = value
	}
	return out
}
