package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/delichik/pansmart2mqtt/internal/config"
	"github.com/delichik/pansmart2mqtt/internal/core/domain"
	"github.com/delichik/pansmart2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor builds the Home Assistant discovery payloads once at
// boot. Sensor and number entities only exist when the device actually
// reports their keys, so each device's status is fetched before the
// configs are assembled.
type HADiscoveryActor struct {
	config            *config.Config
	behavior          actor.Behavior
	stash             *actorutil.Stash
	cloudActor        *actor.PID
	mqttActor         *actor.PID
	cloudActorHealthy bool
	mqttActorHealthy  bool
	healthyRecv       int

	devices       []domain.DeviceSummary
	statusPending int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, cloudActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:     config,
		cloudActor: cloudActor,
		mqttActor:  mqttActor,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check cloud and MQTT actor healthy
		state.healthyRecv = 0
		state.cloudActorHealthy = false
		state.mqttActorHealthy = false
		// Cloud Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CLOUD,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_CLOUD:
				state.cloudActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.cloudActorHealthy && state.mqttActorHealthy {
				// Ask cloud for the device table
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.CloudListDevicesRequest{}, 20*time.Second), func(err error) any {
					return domain.CloudListDevicesResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingDevicesReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Cloud Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingDevicesReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.CloudListDevicesResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@devices: CloudListDevicesResponse", zap.Int("count", len(msg.Devices)))

		state.devices = msg.Devices
		state.statusPending = len(msg.Devices)

		if state.statusPending == 0 {
			state.publishDiscovery(ctx)
			state.behavior.Become(state.Done)
			return
		}
		for _, device := range msg.Devices {
			deviceId := device.DeviceId
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.CloudDeviceStatusRequest{DeviceId: deviceId}, 20*time.Second), func(err error) any {
				return domain.CloudDeviceStatusResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					DeviceId: deviceId,
				}
			})
		}
		state.behavior.Become(state.WaitingStatusReceive)
	default:
		state.logger.Debug("hadiscovery@devices: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingStatusReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.CloudDeviceStatusResponse:
		state.statusPending--
		if msg.HasResponseError() {
			// keep the manifest-only entity set for this device
			state.logger.Error("hadiscovery@status: CloudDeviceStatusResponse error",
				zap.String("deviceId", msg.DeviceId), zap.Error(msg.GetResponseError()))
		} else {
			for i := range state.devices {
				if state.devices[i].DeviceId == msg.DeviceId {
					state.devices[i].Entities = msg.Entities
					break
				}
			}
		}
		if state.statusPending == 0 {
			state.publishDiscovery(ctx)
			state.behavior.Become(state.Done)
		}
	default:
		state.logger.Debug("hadiscovery@status: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	var sensors []domain.GenericSensor
	var switches []domain.GenericSwitch
	var inputNumbers []domain.GenericInputNumber
	var selects []domain.GenericSelect

	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	bridgeSensors := domain.BridgeSensors(bridgeDevice)
	sensors = append(sensors, bridgeSensors...)

	for _, summary := range state.devices {
		applianceDevice := domain.ApplianceDevice(bridgeDevice, summary)

		deviceSensors := domain.ApplianceSensors(applianceDevice, summary.DeviceId, summary.Entities)
		for i := range deviceSensors {
			if i > 0 {
				deviceSensors[i].Device = domain.IdDevice(applianceDevice)
			}
			sensors = append(sensors, deviceSensors[i])
		}
		switches = append(switches, domain.ApplianceSwitches(domain.IdDevice(applianceDevice), summary.DeviceId, summary.Entities)...)
		inputNumbers = append(inputNumbers, domain.ApplianceInputNumbers(domain.IdDevice(applianceDevice), summary.DeviceId, summary.Entities)...)
		selects = append(selects, domain.ApplianceSelects(domain.IdDevice(applianceDevice), summary.DeviceId, summary.Entities)...)
	}

	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Switches:     switches,
		InputNumbers: inputNumbers,
		Selects:      selects,
	})
}
