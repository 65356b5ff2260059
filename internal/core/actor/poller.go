package actor

import (
	"fmt"
	"time"

	"github.com/delichik/pansmart2mqtt/internal/config"
	"github.com/delichik/pansmart2mqtt/internal/core/domain"
	"github.com/delichik/pansmart2mqtt/internal/core/events"
	"github.com/delichik/pansmart2mqtt/internal/metrics"
	. "github.com/delichik/pansmart2mqtt/internal/util/actorutil"
	"github.com/delichik/pansmart2mqtt/pkg/pansmart"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives the refresh cycle: every poll interval it re-enumerates
// the bound devices (the cloud table is rebuilt from scratch, stale device
// objects are discarded) and asks the cloud actor for each device's status,
// publishing the resulting sensor updates on the event stream. It also
// resolves entity-level commands to full-status patches.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	cloudActor  *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream

	devices       map[string]domain.DeviceSummary
	bindings      map[string]entityBinding
	refreshFailed bool

	logger *zap.Logger
}

type pollerTick struct {
}

type entityBinding struct {
	deviceId        string
	kind            string
	key             string
	optionKeyByName map[string]string
	groupKeys       []string
}

func NewPollerActor(config *config.Config, cloudActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:      config,
		cloudActor:  cloudActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger("poller", logger),
		eventStream: eventStream,
		devices:     map[string]domain.DeviceSummary{},
		bindings:    map[string]entityBinding{},
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.CloudListDevicesRequest{}, 20*time.Second), func(err error) any {
			return domain.CloudListDevicesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingDevicesReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) WaitingDevicesReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.CloudListDevicesResponse:
		if msg.HasResponseError() {
			state.logger.Error("poller@waitingDevices CloudListDevicesResponse error", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		state.logger.Info("poller@waitingDevices devices discovered", zap.Int("count", len(msg.Devices)))
		state.replaceDevices(msg.Devices)

		// the boot enumeration doubles as the first refresh cycle
		for deviceId := range state.devices {
			state.requestStatus(ctx, deviceId)
		}
		state.scheduleNextTick(ctx)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("poller@waitingDevices: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		healthState := "idle"
		if state.refreshFailed {
			healthState = "update_failed"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   healthState,
		})
	case pollerTick:
		state.logger.Debug("poller@default tick")
		// each cycle starts from a fresh enumeration
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.CloudListDevicesRequest{}, 20*time.Second), func(err error) any {
			return domain.CloudListDevicesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.scheduleNextTick(ctx)
	case domain.CloudListDevicesResponse:
		if msg.HasResponseError() {
			// enumeration failure fails the whole cycle, statuses stay stale
			state.refreshFailed = true
			metrics.RefreshErrorsTotal.Inc()
			state.logger.Error("poller@default CloudListDevicesResponse error", zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Debug("poller@default CloudListDevicesResponse", zap.Int("count", len(msg.Devices)))
		state.refreshFailed = false
		state.replaceDevices(msg.Devices)
		for deviceId := range state.devices {
			state.requestStatus(ctx, deviceId)
		}
	case domain.CloudDeviceStatusResponse:
		if msg.HasResponseError() {
			metrics.RefreshErrorsTotal.Inc()
			state.logger.Error("poller@default CloudDeviceStatusResponse error",
				zap.String("deviceId", msg.DeviceId), zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Debug("poller@default CloudDeviceStatusResponse", zap.String("deviceId", msg.DeviceId))
		state.applyStatus(msg.DeviceId, msg.Status, msg.Entities)
	case domain.CloudPatchStatusResponse:
		if msg.HasResponseError() {
			metrics.CommandErrorsTotal.Inc()
			state.logger.Error("poller@default CloudPatchStatusResponse error",
				zap.String("deviceId", msg.DeviceId), zap.Error(msg.GetResponseError()))
			return
		}
		state.logger.Debug("poller@default CloudPatchStatusResponse", zap.String("deviceId", msg.DeviceId))
		if device, ok := state.devices[msg.DeviceId]; ok {
			state.publishStatusEvents(msg.DeviceId, msg.Status, device.Entities)
		}
	case domain.SetSwitchRequest:
		state.logger.Debug("poller@default SetSwitchRequest", zap.String("entityId", msg.EntityId), zap.Bool("on", msg.On))
		metrics.CommandsTotal.WithLabelValues(pansmart.EntitySwitch).Inc()
		state.handleSetSwitch(ctx, msg)
	case domain.SetNumberRequest:
		state.logger.Debug("poller@default SetNumberRequest", zap.String("entityId", msg.EntityId), zap.Float64("value", msg.Value))
		metrics.CommandsTotal.WithLabelValues(pansmart.EntityNumber).Inc()
		state.handleSetNumber(ctx, msg)
	case domain.SelectOptionRequest:
		state.logger.Debug("poller@default SelectOptionRequest", zap.String("entityId", msg.EntityId), zap.String("option", msg.Option))
		metrics.CommandsTotal.WithLabelValues(pansmart.EntitySelect).Inc()
		state.handleSelectOption(ctx, msg)
	default:
		state.logger.Debug("poller@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// replaceDevices swaps in the freshly enumerated table. Bindings are kept
// additive so commands arriving between enumeration and the next status
// fetch still resolve.
func (state *PollerActor) replaceDevices(devices []domain.DeviceSummary) {
	table := make(map[string]domain.DeviceSummary, len(devices))
	for _, device := range devices {
		table[device.DeviceId] = device
		state.rebindDevice(device.DeviceId, device.Entities)
	}
	state.devices = table
	metrics.DevicesDiscovered.Set(float64(len(devices)))
}

func (state *PollerActor) scheduleNextTick(ctx actor.Context) {
	if state.config.MonitorConfig.PollIntervalMillis > 0 {
		state.scheduler.RequestOnce(time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond, ctx.Self(), pollerTick{})
	}
}

func (state *PollerActor) requestStatus(ctx actor.Context, deviceId string) {
	metrics.RefreshTotal.Inc()
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.CloudDeviceStatusRequest{DeviceId: deviceId}, 20*time.Second), func(err error) any {
		return domain.CloudDeviceStatusResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			DeviceId: deviceId,
		}
	})
}

// applyStatus stores the freshest entity set for the device, refreshes
// the command binding index and publishes update events.
func (state *PollerActor) applyStatus(deviceId string, status map[string]any, entities []pansmart.EntityDescriptor) {
	device, ok := state.devices[deviceId]
	if !ok {
		state.logger.Warn("poller: status for unknown device", zap.String("deviceId", deviceId))
		return
	}
	device.Entities = entities
	state.devices[deviceId] = device
	state.rebindDevice(deviceId, entities)
	state.publishStatusEvents(deviceId, status, entities)
}

func (state *PollerActor) publishStatusEvents(deviceId string, status map[string]any, entities []pansmart.EntityDescriptor) {
	evs := events.DeviceStatusToUpdateEvents(deviceId, status, entities)
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

func (state *PollerActor) rebindDevice(deviceId string, entities []pansmart.EntityDescriptor) {
	for _, entity := range entities {
		binding := entityBinding{
			deviceId: deviceId,
			kind:     entity.Type,
			key:      entity.Key,
		}
		if entity.Type == pansmart.EntitySelect {
			binding.optionKeyByName = make(map[string]string, len(entity.Options))
			binding.groupKeys = make([]string, 0, len(entity.Options))
			for _, option := range entity.Options {
				binding.optionKeyByName[option.Name] = option.Key
				binding.groupKeys = append(binding.groupKeys, option.Key)
			}
		}
		state.bindings[domain.EntityId(deviceId, entity.Key)] = binding
	}
}

func (state *PollerActor) handleSetSwitch(ctx actor.Context, msg domain.SetSwitchRequest) {
	binding, ok := state.bindings[msg.EntityId]
	if !ok || binding.kind != pansmart.EntitySwitch {
		state.logger.Warn("poller: switch command for unknown entity", zap.String("entityId", msg.EntityId))
		return
	}
	value := 0
	if msg.On {
		value = 1
	}
	state.sendPatch(ctx, binding.deviceId, map[string]any{binding.key: value})
}

func (state *PollerActor) handleSetNumber(ctx actor.Context, msg domain.SetNumberRequest) {
	binding, ok := state.bindings[msg.EntityId]
	if !ok || binding.kind != pansmart.EntityNumber {
		state.logger.Warn("poller: number command for unknown entity", zap.String("entityId", msg.EntityId))
		return
	}
	// cloud numeric fields are integral, truncate toward zero
	state.sendPatch(ctx, binding.deviceId, map[string]any{binding.key: int(msg.Value)})
}

func (state *PollerActor) handleSelectOption(ctx actor.Context, msg domain.SelectOptionRequest) {
	binding, ok := state.bindings[msg.EntityId]
	if !ok || binding.kind != pansmart.EntitySelect {
		state.logger.Warn("poller: select command for unknown entity", zap.String("entityId", msg.EntityId))
		return
	}
	optionKey, ok := binding.optionKeyByName[msg.Option]
	if !ok {
		state.logger.Warn("poller: unknown select option",
			zap.String("entityId", msg.EntityId), zap.String("option", msg.Option))
		return
	}
	// one patch clears the whole exclusive group and sets the chosen key
	updates := make(map[string]any, len(binding.groupKeys))
	for _, key := range binding.groupKeys {
		updates[key] = 0
	}
	updates[optionKey] = 1
	state.sendPatch(ctx, binding.deviceId, updates)
}

func (state *PollerActor) sendPatch(ctx actor.Context, deviceId string, updates map[string]any) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.CloudPatchStatusRequest{
		DeviceId: deviceId,
		Updates:  updates,
	}, 20*time.Second), func(err error) any {
		return domain.CloudPatchStatusResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			DeviceId: deviceId,
		}
	})
}
