package pansmart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testFridge(t *testing.T) Device {
	t.Helper()
	device, err := NewFridgeDevice(DeviceInfo{
		DeviceID: "ABC123XYZ_0100_8765",
		SubType:  "Fridge-11",
		Name:     "Kitchen fridge",
	}, NewClientWithBaseURL("http://localhost", nil, zap.NewNop()), nil, "http://localhost")
	if err != nil {
		t.Fatal(err)
	}
	return device
}

func TestParsedStatusKeySetMatchesDefaults(t *testing.T) {
	assert := assert.New(t)

	device := testFridge(t)
	device.SetRawStatus(map[string]any{
		"PCTempCur":   float64(5),  // not in default table, must be dropped
		"PCTempSet":   float64(6),  // overrides default
		"quickFreeze": float64(1),  // overrides default
		"bogusKey":    "junk",      // dropped
	})

	defaults := fridgeModels["Fridge-11"].DefaultParams
	parsed := device.ParsedStatus()
	assert.Equal(len(defaults), len(parsed), "parsed key set equals default table")
	for key := range defaults {
		_, ok := parsed[key]
		assert.True(ok, "missing key %s", key)
	}
	assert.Equal(float64(6), parsed["PCTempSet"], "overlaid value")
	assert.Equal(float64(1), parsed["quickFreeze"], "overlaid value")
	assert.Equal(-20, parsed["FCTempSet"], "default retained when absent from raw")
	_, ok := parsed["bogusKey"]
	assert.False(ok, "unknown keys dropped")
}

func TestEntityFilterAsymmetry(t *testing.T) {
	assert := assert.New(t)

	device := testFridge(t)
	// raw status carries one sensor and one number key only
	device.SetRawStatus(map[string]any{
		"PCTempCur": float64(4),
		"PCTempSet": float64(5),
	})

	var selects, sensors, numbers int
	for _, entity := range device.Entities() {
		switch entity.Type {
		case EntitySelect:
			selects++
		case EntitySensor:
			sensors++
		case EntityNumber:
			numbers++
		}
	}
	assert.Equal(1, selects, "select entries always included")
	assert.Equal(1, sensors, "sensors filtered by raw status presence")
	assert.Equal(1, numbers, "numbers filtered by raw status presence")
}

func TestSelectItemsActiveState(t *testing.T) {
	assert := assert.New(t)

	device := testFridge(t)
	device.SetRawStatus(map[string]any{"quickFreeze": float64(1)})

	items := device.SelectItems("mode")
	assert.Equal(5, len(items), "all group options present")
	assert.True(items["quickFreeze"].Active)
	assert.False(items["vacation"].Active)
	assert.Equal("假期模式", items["vacation"].Name)
}

func TestSwitchAndNumberAccessors(t *testing.T) {
	assert := assert.New(t)

	device := testFridge(t)
	device.SetRawStatus(map[string]any{
		"vacation":  float64(1),
		"PCTempSet": "7",
		"FCTempSet": "garbage",
	})

	assert.True(device.SwitchState("vacation"))
	assert.False(device.SwitchState("quickFreeze"))

	value, ok := device.NumberValue("PCTempSet")
	assert.True(ok, "numeric string accepted")
	assert.Equal(float64(7), value)

	_, ok = device.NumberValue("FCTempSet")
	assert.False(ok, "garbage yields absent, not panic")

	_, ok = device.NumberValue("noSuchKey")
	assert.False(ok)
}

func TestDeviceTokenFromIdentifier(t *testing.T) {
	assert := assert.New(t)

	device := testFridge(t)
	assert.Equal(DeriveDeviceToken("ABC123XYZ_0100_8765", "0100"), device.Token())
	assert.Equal("0100", device.Type())
	assert.Equal("Fridge-11", device.SubType())
}
