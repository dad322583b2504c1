package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]Alert
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]Alert))
	return nil
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("component", "refresh"))

	l.Info("cycle published", Int("used", 3), Duration("duration_ms", 1500*time.Millisecond))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cycle published", entry["message"])
	assert.Equal(t, "refresh", entry["component"])
	assert.EqualValues(t, 3, entry["used"])
	assert.EqualValues(t, 1500, entry["duration_ms"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}

func TestAlertsCollapseAndFlushOnClose(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AttachAlerts(&AlertConfig{FlushInterval: time.Hour, CountThreshold: 10, Topic: "ops", Publisher: pub})

	// attached on the root, reached through a child
	child := l.With(String("component", "refresh"))
	for i := 0; i < 3; i++ {
		child.Error("refresh cycle failed", Error(errors.New("wikipedia unreachable")))
	}
	pending := l.sink.c.Load().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Count)

	l.DetachAlerts()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "ops", pub.topic)
	assert.Equal(t, "refresh cycle failed", pub.batches[0][0].Message)
	assert.Equal(t, 3, pub.batches[0][0].Count)
}

type blockingPublisher struct {
	capturePublisher
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	p.entered <- struct{}{}
	<-p.release
	return p.capturePublisher.PublishMessage(ctx, topic, payload)
}

func TestAlertCollectorCloseWaitsForSends(t *testing.T) {
	pub := &blockingPublisher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := NewAlertCollector(&AlertConfig{FlushInterval: time.Hour, CountThreshold: 1, Topic: "ops", Publisher: pub})

	c.Add("error", "polygon breaker open", nil, "client.go:1")
	<-pub.entered

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a send was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the send finished")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "polygon breaker open", pub.batches[0][0].Message)
}

func TestWarnDoesNotAlert(t *testing.T) {
	l := Nop()
	l.AttachAlerts(&AlertConfig{FlushInterval: time.Hour, Publisher: &capturePublisher{}})
	defer l.DetachAlerts()

	l.Warn("tick skipped")
	assert.Empty(t, l.sink.c.Load().Pending())
}
