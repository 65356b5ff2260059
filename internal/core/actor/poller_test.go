package actor

import (
	"sync"
	"testing"
	"time"

	adactor "github.com/delichik/pansmart2mqtt/internal/adapter/actor"
	"github.com/delichik/pansmart2mqtt/internal/core/domain"
	"github.com/delichik/pansmart2mqtt/internal/util"
	"github.com/delichik/pansmart2mqtt/internal/util/actorutil"
	"github.com/delichik/pansmart2mqtt/pkg/pansmart"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testFridgeId = "ABC123XYZ_0100_8765"

func pollerTestService() *pansmart.TestCloudService {
	service := pansmart.NewTestCloudService()
	service.AddFridge(testFridgeId, "Fridge-11", "Kitchen fridge", map[string]any{
		"PCTempCur":   float64(4),
		"PCTempSet":   float64(5),
		"FCTempSet":   float64(-19),
		"quickFreeze": float64(1),
		"vacation":    float64(0),
	})
	return service
}

type capturedEvents struct {
	mu     sync.Mutex
	events []any
}

func (c *capturedEvents) add(ev any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capturedEvents) snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.events))
	copy(out, c.events)
	return out
}

func spawnPoller(t *testing.T, service pansmart.CloudService) (*actor.ActorSystem, *actor.RootContext, *actor.PID, *capturedEvents) {
	t.Helper()

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cloudProps := actor.PropsFromProducer(func() actor.Actor { return adactor.NewCloudActor(service, cfg.Cloud, logger) })
	cloudPID := context.Spawn(cloudProps)

	es := &eventstream.EventStream{}
	captured := &capturedEvents{}
	es.Subscribe(captured.add)

	pollerProps := actor.PropsFromProducer(func() actor.Actor { return NewPollerActor(&cfg, cloudPID, es, logger) })
	pollerPID := context.Spawn(pollerProps)

	// device discovery plus the first refresh
	time.Sleep(2 * time.Second)
	return as, context, pollerPID, captured
}

func lastEventFor(events []any, entityId string) any {
	var found any
	for _, ev := range events {
		if sue, ok := ev.(domain.SensorUpdateEvent); ok && sue.SensorId() == entityId {
			found = ev
		}
	}
	return found
}

func TestPollerActorPublishesStatusEvents(t *testing.T) {

	assert := assert.New(t)

	service := pollerTestService()
	as, context, pid, captured := spawnPoller(t, service)

	events := captured.snapshot()
	assert.NotEmpty(events)

	ev := lastEventFor(events, domain.EntityId(testFridgeId, "PCTempCur"))
	if assert.NotNil(ev, "sensor event") {
		assert.Equal(float64(4), ev.(domain.FloatSensorUpdateEvent).Value)
	}

	ev = lastEventFor(events, domain.EntityId(testFridgeId, "PCTempSet"))
	if assert.NotNil(ev, "number event") {
		assert.Equal(float64(5), ev.(domain.InputNumberSensorUpdateEvent).Value)
	}

	ev = lastEventFor(events, domain.EntityId(testFridgeId, "mode"))
	if assert.NotNil(ev, "select event") {
		assert.Equal("速冻", ev.(domain.SelectSensorUpdateEvent).Value)
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestPollerActorSetNumberTruncates(t *testing.T) {

	assert := assert.New(t)

	service := pollerTestService()
	as, context, pid, captured := spawnPoller(t, service)

	context.Send(pid, domain.SetNumberRequest{EntityId: domain.EntityId(testFridgeId, "PCTempSet"), Value: 7.9})
	time.Sleep(1 * time.Second)

	assert.Equal(map[string]any{"PCTempSet": 7}, service.LastPatch(testFridgeId))

	ev := lastEventFor(captured.snapshot(), domain.EntityId(testFridgeId, "PCTempSet"))
	if assert.NotNil(ev, "number event after patch") {
		assert.Equal(float64(7), ev.(domain.InputNumberSensorUpdateEvent).Value)
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestPollerActorSelectPatchClearsGroup(t *testing.T) {

	assert := assert.New(t)

	service := pollerTestService()
	as, context, pid, captured := spawnPoller(t, service)

	context.Send(pid, domain.SelectOptionRequest{EntityId: domain.EntityId(testFridgeId, "mode"), Option: "假期模式"})
	time.Sleep(1 * time.Second)

	patch := service.LastPatch(testFridgeId)
	assert.Equal(map[string]any{
		"quickFreeze": 0,
		"vacation":    1,
		"quickicing":  0,
		"icingStop":   0,
		"icingDeice":  0,
	}, patch)

	ev := lastEventFor(captured.snapshot(), domain.EntityId(testFridgeId, "mode"))
	if assert.NotNil(ev, "select event after patch") {
		assert.Equal("假期模式", ev.(domain.SelectSensorUpdateEvent).Value)
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestPollerActorReenumeratesEachCycle(t *testing.T) {

	assert := assert.New(t)

	service := pollerTestService()

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.PollIntervalMillis = 500
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cloudProps := actor.PropsFromProducer(func() actor.Actor { return adactor.NewCloudActor(service, cfg.Cloud, logger) })
	cloudPID := context.Spawn(cloudProps)

	es := &eventstream.EventStream{}
	pollerProps := actor.PropsFromProducer(func() actor.Actor { return NewPollerActor(&cfg, cloudPID, es, logger) })
	pollerPID := context.Spawn(pollerProps)

	time.Sleep(2 * time.Second)

	// boot enumeration plus at least two timed cycles
	assert.GreaterOrEqual(service.ListCalls(), 3, "device table rebuilt every cycle")

	context.Stop(pollerPID)
	as.Shutdown()
}

func TestPollerActorUnknownEntityIgnored(t *testing.T) {

	assert := assert.New(t)

	service := pollerTestService()
	as, context, pid, _ := spawnPoller(t, service)

	context.Send(pid, domain.SetSwitchRequest{EntityId: "ffffffff_nope", On: true})
	time.Sleep(500 * time.Millisecond)

	assert.Nil(service.LastPatch(testFridgeId))

	context.Stop(pid)
	as.Shutdown()
}

func TestPollerActorHealth(t *testing.T) {

	assert := assert.New(t)

	service := pollerTestService()
	as, context, pid, _ := spawnPoller(t, service)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(resp.Healthy)
	assert.Equal(domain.ACTOR_ID_POLLER, resp.Id)

	context.Stop(pid)
	as.Shutdown()
}
