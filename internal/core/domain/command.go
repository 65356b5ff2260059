package domain

import "fmt"

// DeviceCommandRequest

type DeviceCommandRequest interface {
	ActorRequest
	DeviceCommand() string
}

type DeviceCommandRequestMixIn struct {
	ActorRequestMixIn
}

func (r DeviceCommandRequestMixIn) DeviceCommand() string {
	return fmt.Sprintf("%T", r)
}

// DeviceCommandResponse

type DeviceCommandResponse interface {
	ActorResponse
	DeviceCommandResponse() string
}

type DeviceCommandResponseMixIn struct {
	ActorResponse
}

func (r DeviceCommandResponseMixIn) DeviceCommandResponse() string {
	return fmt.Sprintf("%T", r)
}

// Device commands. EntityId is the topic-level entity id, not the cloud
// device id; the poller resolves it through its binding index.

type SetSwitchRequest struct {
	DeviceCommandRequestMixIn
	EntityId string
	On       bool
}

type SetSwitchResponse struct {
	DeviceCommandResponseMixIn
	On bool
}

type SetNumberRequest struct {
	DeviceCommandRequestMixIn
	EntityId string
	Value    float64
}

type SetNumberResponse struct {
	DeviceCommandResponseMixIn
	Value float64
}

type SelectOptionRequest struct {
	DeviceCommandRequestMixIn
	EntityId string
	Option   string
}

type SelectOptionResponse struct {
	DeviceCommandResponseMixIn
	Option string
}

// ensure interface compliance
var _ DeviceCommandRequest = (*SetSwitchRequest)(nil)
