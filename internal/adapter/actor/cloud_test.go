package actor

import (
	"testing"
	"time"

	"github.com/delichik/pansmart2mqtt/internal/core/domain"
	"github.com/delichik/pansmart2mqtt/internal/util"
	"github.com/delichik/pansmart2mqtt/internal/util/actorutil"
	"github.com/delichik/pansmart2mqtt/pkg/pansmart"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testFridgeId = "ABC123XYZ_0100_8765"

func testCloudService() *pansmart.TestCloudService {
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

func spawnCloudActor(t *testing.T, service pansmart.CloudService) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	t.Helper()

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewCloudActor(service, cfg.Cloud, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)
	return as, context, pid
}

func TestCloudActorListDevices(t *testing.T) {

	assert := assert.New(t)

	service := testCloudService()
	as, context, pid := spawnCloudActor(t, service)

	result, err := context.RequestFuture(pid, domain.CloudListDevicesRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.CloudListDevicesResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(1, len(resp.Devices))
	assert.Equal(testFridgeId, resp.Devices[0].DeviceId)
	assert.Equal("Fridge-11", resp.Devices[0].SubType)
	assert.Equal("Kitchen fridge", resp.Devices[0].Name)

	context.Stop(pid)
	as.Shutdown()
}

func TestCloudActorDeviceStatus(t *testing.T) {

	assert := assert.New(t)

	service := testCloudService()
	as, context, pid := spawnCloudActor(t, service)

	_, err := context.RequestFuture(pid, domain.CloudListDevicesRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	result, err := context.RequestFuture(pid, domain.CloudDeviceStatusRequest{DeviceId: testFridgeId}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.CloudDeviceStatusResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(testFridgeId, resp.DeviceId)
	assert.Equal(float64(5), resp.Status["PCTempSet"])
	// sensor reading comes from raw, parsed status alone does not carry it
	assert.Equal(float64(4), resp.Status["PCTempCur"])
	assert.NotEmpty(resp.Entities)

	context.Stop(pid)
	as.Shutdown()
}

func TestCloudActorPatchStatus(t *testing.T) {

	assert := assert.New(t)

	service := testCloudService()
	as, context, pid := spawnCloudActor(t, service)

	_, err := context.RequestFuture(pid, domain.CloudListDevicesRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	_, err = context.RequestFuture(pid, domain.CloudDeviceStatusRequest{DeviceId: testFridgeId}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	result, err := context.RequestFuture(pid, domain.CloudPatchStatusRequest{
		DeviceId: testFridgeId,
		Updates:  map[string]any{"PCTempSet": 3},
	}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.CloudPatchStatusResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(3, service.LastPatch(testFridgeId)["PCTempSet"])
	assert.Equal(3, resp.Status["PCTempSet"])

	context.Stop(pid)
	as.Shutdown()
}

func TestCloudActorHealth(t *testing.T) {

	assert := assert.New(t)

	service := testCloudService()
	as, context, pid := spawnCloudActor(t, service)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ActorHealthResponse)

	assert.True(resp.Healthy)
	assert.Equal(CLOUD_ACTOR_ID, resp.Id)

	context.Stop(pid)
	as.Shutdown()
}
