package logger

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls the error digest. Entries with the same level,
// message, fields and caller fold into one record with a count. The digest
// ships to Topic every TimeInterval, or sooner once CountThreshold distinct
// records are pending.
type CollectionConfig struct {
	TimeInterval   time.Duration
	CountThreshold int
	Topic          string
	Publisher      Publisher
}

type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest folds repeated error entries between publishes.
type Digest struct {
	cfg     CollectionConfig
	mu      sync.Mutex
	pending map[string]*DigestEntry
	order   []string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewDigest(config *CollectionConfig) *Digest {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	d := &Digest{
		cfg:     cfg,
		pending: make(map[string]*DigestEntry),
		done:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Digest) AddLog(level, message string, fields map[string]interface{}, caller string) {
	key := digestKey(level, message, fields, caller)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.pending[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	d.pending[key] = &DigestEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	d.order = append(d.order, key)
	if len(d.pending) >= d.cfg.CountThreshold {
		d.shipLocked()
	}
}

// digestKey is order-independent in fields.
func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(level)
	b.WriteByte('|')
	b.WriteString(message)
	b.WriteByte('|')
	b.WriteString(caller)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, fields[k])
	}
	return b.String()
}

func (d *Digest) loop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.shipLocked()
			d.mu.Unlock()
		case <-d.done:
			d.mu.Lock()
			d.shipLocked()
			d.mu.Unlock()
			return
		}
	}
}

// shipLocked hands the pending batch to the publisher in first-seen order.
func (d *Digest) shipLocked() {
	if len(d.order) == 0 {
		return
	}
	batch := make([]DigestEntry, 0, len(d.order))
	for _, k := range d.order {
		batch = append(batch, *d.pending[k])
	}
	d.pending = make(map[string]*DigestEntry)
	d.order = nil

	pub := d.cfg.Publisher
	if pub == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Writing through Logger here would loop back into the digest.
		if err := pub.PublishMessage(ctx, d.cfg.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "publish error digest: %v\n", err)
		}
	}()
}

// Close ships whatever is pending and waits for in-flight publishes.
func (d *Digest) Close() {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}
