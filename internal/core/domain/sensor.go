package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/delichik/pansmart2mqtt/pkg/pansmart"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE = "bridge"

	STATE_CLASS_MEASUREMENT   = "measurement"
	DEVICE_CLASS_TEMPERATURE  = "temperature"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	ENTITY_CLASS_CONFIG       = "config"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
	INPUT_NUMBER_MODE_BOX     = "box"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("pansmart_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "delichik",
		Model:        "Pansmart",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Pansmart %s", md5HashShort(baseTopic)),
	}
}

// ApplianceDevice maps one cloud device to a HA device entry, linked to
// the bridge so every appliance hangs off it in the device registry.
func ApplianceDevice(bridge Device, summary DeviceSummary) Device {
	return Device{
		Id:           fmt.Sprintf("pansmart_%s", md5HashShort(summary.DeviceId)),
		Manufacturer: "Panasonic",
		Model:        summary.SubType,
		Name:         summary.Name,
		ViaDevice:    bridge.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// EntityId builds the topic-level id of one device attribute. It only
// contains letters, numbers and underscores so it is safe inside MQTT
// topics and command extraction regexps.
func EntityId(deviceId, key string) string {
	return fmt.Sprintf("%s_%s", md5HashShort(deviceId), key)
}

func ApplianceSensors(applianceDevice Device, deviceId string, entities []pansmart.EntityDescriptor) []GenericSensor {
	var sensors []GenericSensor
	for _, entity := range entities {
		if entity.Type != pansmart.EntitySensor {
			continue
		}
		sensor := GenericSensor{
			Device:            applianceDevice,
			Id:                EntityId(deviceId, entity.Key),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              entity.Name,
			UnitOfMeasurement: entity.Unit,
			StateClass:        STATE_CLASS_MEASUREMENT,
			Icon:              entity.Icon,
			UniqueId:          uniqueId(applianceDevice.Id, entity.Key),
		}
		if entity.Unit == "°C" {
			sensor.DeviceClass = DEVICE_CLASS_TEMPERATURE
		}
		sensors = append(sensors, sensor)
	}
	return sensors
}

func ApplianceSwitches(applianceDevice Device, deviceId string, entities []pansmart.EntityDescriptor) []GenericSwitch {
	var switches []GenericSwitch
	for _, entity := range entities {
		if entity.Type != pansmart.EntitySwitch {
			continue
		}
		switches = append(switches, GenericSwitch{
			Device:   applianceDevice,
			Id:       EntityId(deviceId, entity.Key),
			Name:     entity.Name,
			UniqueId: uniqueId(applianceDevice.Id, entity.Key),
			Icon:     entity.Icon,
		})
	}
	return switches
}

func ApplianceInputNumbers(applianceDevice Device, deviceId string, entities []pansmart.EntityDescriptor) []GenericInputNumber {
	var inputNumbers []GenericInputNumber
	for _, entity := range entities {
		if entity.Type != pansmart.EntityNumber {
			continue
		}
		inputNumbers = append(inputNumbers, GenericInputNumber{
			Device:   applianceDevice,
			Id:       EntityId(deviceId, entity.Key),
			Name:     entity.Name,
			UniqueId: uniqueId(applianceDevice.Id, entity.Key),
			Icon:     entity.Icon,
			Max:      entity.Max,
			Min:      entity.Min,
			Step:     entity.Step,
			Mode:     INPUT_NUMBER_MODE_BOX,
		})
	}
	return inputNumbers
}

func ApplianceSelects(applianceDevice Device, deviceId string, entities []pansmart.EntityDescriptor) []GenericSelect {
	var selects []GenericSelect
	for _, entity := range entities {
		if entity.Type != pansmart.EntitySelect {
			continue
		}
		options := make([]string, 0, len(entity.Options))
		for _, option := range entity.Options {
			options = append(options, option.Name)
		}
		selects = append(selects, GenericSelect{
			Device:   applianceDevice,
			Id:       EntityId(deviceId, entity.Key),
			Name:     entity.Name,
			UniqueId: uniqueId(applianceDevice.Id, entity.Key),
			Icon:     entity.Icon,
			Options:  options,
		})
	}
	return selects
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
