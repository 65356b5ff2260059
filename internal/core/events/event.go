package events

import (
	. "github.com/delichik/pansmart2mqtt/internal/core/domain"
	"github.com/delichik/pansmart2mqtt/pkg/pansmart"
)

// DeviceStatusToUpdateEvents maps one device's parsed status to sensor
// update events, one per entity the device currently exposes. Select
// groups resolve to the display name of the active option, or an empty
// string when no option is set.
func DeviceStatusToUpdateEvents(deviceId string, status map[string]any, entities []pansmart.EntityDescriptor) []any {
	var events []any

	for _, entity := range entities {
		entityId := EntityId(deviceId, entity.Key)
		switch entity.Type {
		case pansmart.EntitySensor:
			value, ok := statusFloat(status, entity.Key)
			if !ok {
				continue
			}
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: entityId,
				},
				Value:    value,
				Decimals: 1,
			})
		case pansmart.EntityNumber:
			value, ok := statusFloat(status, entity.Key)
			if !ok {
				continue
			}
			events = append(events, InputNumberSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: entityId,
				},
				Value: value,
			})
		case pansmart.EntitySwitch:
			events = append(events, SwitchSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: entityId,
				},
				Value: statusOn(status, entity.Key),
			})
		case pansmart.EntitySelect:
			events = append(events, SelectSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: entityId,
				},
				Value: activeOptionName(status, entity.Options),
			})
		}
	}

	return events
}

func SwitchUpdateEvent(deviceId, key string, on bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: EntityId(deviceId, key),
		},
		Value: on,
	}
}

func NumberUpdateEvent(deviceId, key string, value float64) any {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: EntityId(deviceId, key),
		},
		Value: value,
	}
}

func SelectUpdateEvent(deviceId, groupKey, optionName string) any {
	return SelectSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: EntityId(deviceId, groupKey),
		},
		Value: optionName,
	}
}

func activeOptionName(status map[string]any, options []pansmart.SelectOption) string {
	for _, option := range options {
		if statusOn(status, option.Key) {
			return option.Name
		}
	}
	return ""
}

func statusFloat(status map[string]any, key string) (float64, bool) {
	value, ok := status[key]
	if !ok {
		return 0, false
	}
	return pansmart.ToFloat(value)
}

func statusOn(status map[string]any, key string) bool {
	value, ok := statusFloat(status, key)
	return ok && value == 1
}
