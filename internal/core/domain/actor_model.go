package domain

import "github.com/delichik/pansmart2mqtt/pkg/pansmart"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_CLOUD        = "cloud"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// DeviceSummary is the id-indexed view of one cloud device that flows
// between actors. Entity descriptors reflect the capability manifest
// filtered by the last known raw status.
type DeviceSummary struct {
	DeviceId string
	SubType  string
	Name     string
	Entities []pansmart.EntityDescriptor
}

type CloudListDevicesRequest struct {
	ActorRequestMixIn
}

type CloudListDevicesResponse struct {
	ActorResponseMixIn
	Devices []DeviceSummary
}

type CloudDeviceStatusRequest struct {
	ActorRequestMixIn
	DeviceId string
}

type CloudDeviceStatusResponse struct {
	ActorResponseMixIn
	DeviceId string
	Status   map[string]any
	Entities []pansmart.EntityDescriptor
}

type CloudPatchStatusRequest struct {
	ActorRequestMixIn
	DeviceId string
	Updates  map[string]any
}

type CloudPatchStatusResponse struct {
	ActorResponseMixIn
	DeviceId string
	Status   map[string]any
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
	Selects      []GenericSelect
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
