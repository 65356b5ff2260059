package pansmart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fridgeStatus() map[string]any {
	return map[string]any{
		"PCTempCur":   float64(4),
		"FCTempCur":   float64(-18),
		"PCTempSet":   float64(5),
		"FCTempSet":   float64(-19),
		"quickFreeze": float64(1),
		"vacation":    float64(0),
	}
}

func TestAuthenticateAndListDevices(t *testing.T) {
	assert := assert.New(t)

	fake := NewFakeCloud()
	defer fake.Close()
	fake.AddDevice("ABC123XYZ_0100_8765", "Fridge-11", "Kitchen fridge", fridgeStatus())
	// unrecognized type code must be skipped silently
	fake.AddDevice("DEF456UVW_9999_1111", "Oven-1", "Mystery oven", map[string]any{})

	client := fake.NewTestClient()
	ctx := context.Background()

	err := client.Authenticate(ctx, "AA:BB:CC:DD:EE:FF", "user@example.com", HexUpperMD5("hunter2"))
	assert.NoError(err)
	assert.Equal("usr-001", client.UserID())
	assert.Equal("ssid-001", client.SSID())

	devices, err := client.ListDevices(ctx)
	assert.NoError(err)
	assert.Equal(1, len(devices), "unrecognized device type skipped")
	device, ok := devices["ABC123XYZ_0100_8765"]
	assert.True(ok)
	assert.Equal("Kitchen fridge", device.Name())
}

func TestAuthenticateTokenFailureLeavesNoSession(t *testing.T) {
	assert := assert.New(t)

	fake := NewFakeCloud()
	defer fake.Close()
	fake.FailGetToken(true)

	client := fake.NewTestClient()
	err := client.Authenticate(context.Background(), "AA:BB:CC:DD:EE:FF", "user@example.com", "PWDHASH")
	assert.Error(err)
	assert.Empty(client.UserID(), "no session fields on failure")
	assert.Empty(client.SSID(), "no session fields on failure")
	assert.Equal(1, fake.Hits("UsrGetToken"))
	assert.Equal(0, fake.Hits("UsrLogin"), "login never attempted")
}

func TestFetchDeviceStatusParses(t *testing.T) {
	assert := assert.New(t)

	fake := NewFakeCloud()
	defer fake.Close()
	fake.AddDevice("ABC123XYZ_0100_8765", "Fridge-11", "Kitchen fridge", fridgeStatus())

	client := fake.NewTestClient()
	ctx := context.Background()
	assert.NoError(client.Authenticate(ctx, "mac", "user", "PWDHASH"))
	_, err := client.ListDevices(ctx)
	assert.NoError(err)

	parsed, err := client.FetchDeviceStatus(ctx, "ABC123XYZ_0100_8765")
	assert.NoError(err)
	assert.Equal(float64(5), parsed["PCTempSet"])
	assert.Equal(float64(1), parsed["quickFreeze"])
	// PCTempCur is not part of the default table: present in raw, dropped from parsed
	_, ok := parsed["PCTempCur"]
	assert.False(ok)

	device, _ := client.Device("ABC123XYZ_0100_8765")
	raw := device.RawStatus()
	assert.Equal(float64(4), raw["PCTempCur"], "raw keeps everything")
}

func TestDeviceCookieCachedWithinTTL(t *testing.T) {
	assert := assert.New(t)

	fake := NewFakeCloud()
	defer fake.Close()
	fake.AddDevice("ABC123XYZ_0100_8765", "Fridge-11", "Kitchen fridge", fridgeStatus())

	client := fake.NewTestClient()
	ctx := context.Background()
	assert.NoError(client.Authenticate(ctx, "mac", "user", "PWDHASH"))
	devices, err := client.ListDevices(ctx)
	assert.NoError(err)
	device := devices["ABC123XYZ_0100_8765"]

	first := device.DeviceCookie(ctx)
	second := device.DeviceCookie(ctx)
	assert.Equal("DEVSESSION=device-cookie", first)
	assert.Equal(first, second)
	assert.Equal(1, fake.Hits("WebSession"), "cookie served from cache within TTL")

	// age the cookie past the TTL
	device.(*FridgeDevice).cookieCreated = time.Now().Add(-DeviceCookieTTL - time.Minute)
	third := device.DeviceCookie(ctx)
	assert.Equal(first, third)
	assert.Equal(2, fake.Hits("WebSession"), "expired cookie refetched")
}

func TestSetDeviceStatusMergesAndMirrors(t *testing.T) {
	assert := assert.New(t)

	fake := NewFakeCloud()
	defer fake.Close()
	fake.AddDevice("ABC123XYZ_0100_8765", "Fridge-11", "Kitchen fridge", fridgeStatus())

	client := fake.NewTestClient()
	ctx := context.Background()
	assert.NoError(client.Authenticate(ctx, "mac", "user", "PWDHASH"))
	_, err := client.ListDevices(ctx)
	assert.NoError(err)

	err = client.SetDeviceStatus(ctx, "ABC123XYZ_0100_8765", map[string]any{
		"PCTempSet": 3,
		"noSuchKey": 99, // not in current status: silently ignored
	})
	assert.NoError(err)

	submitted := fake.LastSubmitted("ABC123XYZ_0100_8765")
	assert.Equal(float64(3), submitted["PCTempSet"].(float64))
	_, ok := submitted["noSuchKey"]
	assert.False(ok, "unknown keys never submitted")
	// full-object submission, not a diff
	assert.Equal(len(fridgeModels["Fridge-11"].DefaultParams), len(submitted))

	device, _ := client.Device("ABC123XYZ_0100_8765")
	value, ok := device.NumberValue("PCTempSet")
	assert.True(ok)
	assert.Equal(float64(3), value, "local status mirrors the overlay")
}

func TestSetDeviceStatusFailureKeepsLocalOverlay(t *testing.T) {
	assert := assert.New(t)

	fake := NewFakeCloud()
	defer fake.Close()
	fake.AddDevice("ABC123XYZ_0100_8765", "Fridge-11", "Kitchen fridge", fridgeStatus())

	client := fake.NewTestClient()
	ctx := context.Background()
	assert.NoError(client.Authenticate(ctx, "mac", "user", "PWDHASH"))
	_, err := client.ListDevices(ctx)
	assert.NoError(err)

	fake.FailSetStatus(true)
	err = client.SetDeviceStatus(ctx, "ABC123XYZ_0100_8765", map[string]any{"PCTempSet": 2})
	assert.Error(err)

	device, _ := client.Device("ABC123XYZ_0100_8765")
	value, _ := device.NumberValue("PCTempSet")
	assert.Equal(float64(2), value, "failed submit leaves the overlaid local state")
}

func TestMessageIDsIncrease(t *testing.T) {
	assert := assert.New(t)

	client := NewFakeCloud().NewTestClient()
	first := client.nextMessageID()
	second := client.nextMessageID()
	assert.Greater(second, first)
}
