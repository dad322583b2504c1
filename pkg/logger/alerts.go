package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a batch of alerts to the operations channel.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type AlertConfig struct {
	FlushInterval  time.Duration // periodic flush (e.g. 1m)
	CountThreshold int           // distinct alerts before an early flush
	Topic          string
	Publisher      Publisher
}

// Alert is an error entry collapsed over repeated occurrences.
type Alert struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// AlertCollector deduplicates error entries and flushes them in batches, so a
// failing upstream produces one alert per flush instead of one per cycle.
type AlertCollector struct {
	cfg     *AlertConfig
	mu      sync.Mutex
	pending map[uint64]*Alert
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAlertCollector(cfg *AlertConfig) *AlertCollector {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	c := &AlertCollector{
		cfg:     cfg,
		pending: make(map[uint64]*Alert),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Add records one occurrence.
func (c *AlertCollector) Add(level, msg string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := alertKey(level, msg, caller)

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.pending[key]; ok {
		a.Count++
		a.LastSeen = now
		a.Fields = fields
	} else {
		c.pending[key] = &Alert{
			Level: level, Message: msg, Fields: fields, Caller: caller,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
	}
	if len(c.pending) >= c.cfg.CountThreshold {
		c.flushLocked()
	}
}

// Pending returns a snapshot of unflushed alerts ordered by first occurrence.
func (c *AlertCollector) Pending() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, 0, len(c.pending))
	for _, a := range c.pending {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

// Close flushes remaining alerts, stops the background loop and waits for
// in-flight sends to return.
func (c *AlertCollector) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.stop)
		c.wg.Wait()
	})
}

// fields are volatile (error text, counts), so they are left out of the key
func alertKey(level, msg, caller string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(level))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(msg))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(caller))
	return h.Sum64()
}

func (c *AlertCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
		case <-c.stop:
			c.mu.Lock()
			batch := c.drainLocked()
			c.mu.Unlock()
			c.send(batch)
			return
		}
	}
}

// flushLocked is a no-op once closed; the loop drains what is left on stop.
func (c *AlertCollector) flushLocked() {
	if c.closed {
		return
	}
	batch := c.drainLocked()
	if len(batch) == 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.send(batch)
	}()
}

func (c *AlertCollector) drainLocked() []Alert {
	if len(c.pending) == 0 {
		return nil
	}
	batch := make([]Alert, 0, len(c.pending))
	for _, a := range c.pending {
		batch = append(batch, *a)
	}
	c.pending = make(map[uint64]*Alert)
	return batch
}

func (c *AlertCollector) send(batch []Alert) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		b, _ := json.Marshal(batch)
		fmt.Fprintf(os.Stderr, "alerts: publish failed: %v: %s\n", err, b)
	}
}
