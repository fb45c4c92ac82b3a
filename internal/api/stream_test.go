package api

import (
	"context"
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atp-triage-server/internal/domain"
)

func TestStreamHub_DeliversBroadcast(t *testing.T) {
	logger, _ := logrustest.NewNullLogger()
	hub := NewStreamHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &streamClient{send: make(chan *domain.TriageRecord, 1)}
	require.True(t, hub.add(client))

	record := &domain.TriageRecord{ID: "verdict-1", Level: domain.RED}
	hub.Broadcast(record)

	select {
	case got := <-client.send:
		assert.Equal(t, "verdict-1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached client")
	}
}

func TestStreamHub_ShutdownUnblocksClients(t *testing.T) {
	logger, _ := logrustest.NewNullLogger()
	hub := NewStreamHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancellation")
	}

	// A connection racing shutdown must not hang: add is refused and
	// remove returns immediately.
	client := &streamClient{send: make(chan *domain.TriageRecord, 1)}

	unblocked := make(chan struct{})
	go func() {
		assert.False(t, hub.add(client))
		hub.remove(client)
		close(unblocked)
	}()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("add/remove blocked after hub shutdown")
	}
}
