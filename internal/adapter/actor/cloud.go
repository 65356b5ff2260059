package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/delichik/pansmart2mqtt/internal/config"
	"github.com/delichik/pansmart2mqtt/internal/core/domain"
	"github.com/delichik/pansmart2mqtt/internal/util/actorutil"
	"github.com/delichik/pansmart2mqtt/pkg/pansmart"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	CLOUD_ACTOR_ID = "cloud"

	cloudCallTimeout = 15 * time.Second
)

// CloudActor serializes every cloud call: requests arriving while one is
// in flight are stashed until the call resolves.
type CloudActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	service  pansmart.CloudService
	cloudCfg config.CloudConfig
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewCloudActor(service pansmart.CloudService, cloudCfg config.CloudConfig, logger *zap.Logger) *CloudActor {
	act := &CloudActor{
		service:  service,
		cloudCfg: cloudCfg,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("cloud", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *CloudActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CloudActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("cloud@starting started")
		authCtx, cancel := context.WithTimeout(context.Background(), cloudCallTimeout)
		defer cancel()
		err := state.service.Authenticate(authCtx, state.cloudCfg.MAC, state.cloudCfg.Username, state.cloudCfg.PasswordHash)
		if err != nil {
			panic(err)
		}
		state.logger.Info("cloud session established", zap.String("usrId", state.service.UserID()))
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.service.Close()
	default:
		state.logger.Debug("cloud@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CloudActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("cloud@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      CLOUD_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.CloudListDevicesRequest:
		state.logger.Debug("cloud@default: CloudListDevicesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.listDevices),
			mapTaskResult[domain.CloudListDevicesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.CloudListDevicesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(cloudCallTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCloud)
	case domain.CloudDeviceStatusRequest:
		state.logger.Debug("cloud@default: CloudDeviceStatusRequest", zap.String("deviceId", msg.DeviceId))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		deviceId := msg.DeviceId

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.CloudDeviceStatusResponse, error) {
			return state.deviceStatus(deviceId)
		}),
			mapTaskResult[domain.CloudDeviceStatusResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.CloudDeviceStatusResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					DeviceId: deviceId,
				},
				replyTo: sender,
			}
		}).WithTimeout(cloudCallTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCloud)
	case domain.CloudPatchStatusRequest:
		state.logger.Debug("cloud@default: CloudPatchStatusRequest", zap.String("deviceId", msg.DeviceId))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		deviceId := msg.DeviceId
		updates := msg.Updates

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.CloudPatchStatusResponse, error) {
			return state.patchStatus(deviceId, updates)
		}),
			mapTaskResult[domain.CloudPatchStatusResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.CloudPatchStatusResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					DeviceId: deviceId,
				},
				replyTo: sender,
			}
		}).WithTimeout(cloudCallTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCloud)
	case *actor.Stopping:
		state.service.Close()
	default:
		state.logger.Debug("cloud@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *CloudActor) WaitingCloud(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("cloud@WaitingCloud backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.service.Close()
	default:
		state.logger.Debug("cloud@WaitingCloud stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *CloudActor) listDevices() (*domain.CloudListDevicesResponse, error) {
	callCtx, cancel := context.WithTimeout(context.Background(), cloudCallTimeout)
	defer cancel()

	devices, err := a.service.ListDevices(callCtx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	summaries := make([]domain.DeviceSummary, 0, len(devices))
	for _, device := range devices {
		summaries = append(summaries, domain.DeviceSummary{
			DeviceId: device.ID(),
			SubType:  device.SubType(),
			Name:     device.Name(),
			Entities: device.Entities(),
		})
	}
	return &domain.CloudListDevicesResponse{
		Devices: summaries,
	}, nil
}

func (a *CloudActor) deviceStatus(deviceId string) (*domain.CloudDeviceStatusResponse, error) {
	callCtx, cancel := context.WithTimeout(context.Background(), cloudCallTimeout)
	defer cancel()

	status, err := a.service.FetchDeviceStatus(callCtx, deviceId)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	device, ok := a.service.Device(deviceId)
	if !ok {
		return nil, fmt.Errorf("unknown device %s", deviceId)
	}
	entities := device.Entities()
	// sensor readings live outside the parsed key set, overlay them from raw
	raw := device.RawStatus()
	for _, entity := range entities {
		if entity.Type != pansmart.EntitySensor {
			continue
		}
		if value, ok := raw[entity.Key]; ok {
			status[entity.Key] = value
		}
	}
	return &domain.CloudDeviceStatusResponse{
		DeviceId: deviceId,
		Status:   status,
		Entities: entities,
	}, nil
}

func (a *CloudActor) patchStatus(deviceId string, updates map[string]any) (*domain.CloudPatchStatusResponse, error) {
	callCtx, cancel := context.WithTimeout(context.Background(), cloudCallTimeout)
	defer cancel()

	err := a.service.SetDeviceStatus(callCtx, deviceId, updates)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	device, ok := a.service.Device(deviceId)
	if !ok {
		return nil, fmt.Errorf("unknown device %s", deviceId)
	}
	return &domain.CloudPatchStatusResponse{
		DeviceId: deviceId,
		Status:   device.ParsedStatus(),
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
