package notification

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestPubSubClient(t *testing.T, opts ...pstest.ServerReactorOption) *pubsub.Client {
	t.Helper()
	srv := pstest.NewServer(opts...)
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestRelayFailsWhenSubscriptionCannotBeCreated(t *testing.T) {
	client := newTestPubSubClient(t,
		pstest.WithErrorInjection("CreateSubscription", codes.PermissionDenied, "publish only"))

	relay, err := newRelay(context.Background(), client, "projects/test-project/topics/changes", &recordingPublisher{})
	require.Error(t, err)
	require.Nil(t, relay)
}

func TestRelayCreatesMissingTopic(t *testing.T) {
	client := newTestPubSubClient(t)
	ctx := context.Background()

	relay, err := newRelay(ctx, client, "projects/test-project/topics/changes", &recordingPublisher{})
	require.NoError(t, err)
	defer relay.topic.Stop()

	exists, err := client.Topic("changes").Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "changes", relay.topicName)
}

func TestRelayDeliversLocallyUntilReceiving(t *testing.T) {
	client := newTestPubSubClient(t)
	local := &recordingPublisher{}

	relay, err := newRelay(context.Background(), client, "changes", local)
	require.NoError(t, err)
	defer relay.topic.Stop()

	relay.Publish(context.Background(), ChangeEvent{UserID: "u1", Kind: KindTaskCreated, EntityID: "t1"})
	require.Equal(t, 1, local.count())
}

func TestRelayForwardsThroughSubscription(t *testing.T) {
	client := newTestPubSubClient(t)
	local := &recordingPublisher{}

	relay, err := newRelay(context.Background(), client, "changes", local)
	require.NoError(t, err)
	defer relay.topic.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()
	require.Eventually(t, relay.receiving.Load, time.Second, 10*time.Millisecond)

	relay.Publish(context.Background(), ChangeEvent{UserID: "u1", Kind: KindTaskMoved, EntityID: "t1"})
	require.Eventually(t, func() bool { return local.count() == 1 }, 5*time.Second, 20*time.Millisecond)

	local.mu.Lock()
	require.Equal(t, KindTaskMoved, local.events[0].Kind)
	require.Equal(t, "u1", local.events[0].UserID)
	local.mu.Unlock()

	cancel()
	<-done
	require.False(t, relay.receiving.Load())
}
