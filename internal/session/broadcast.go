package session

import (
	"context"
	"io"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher forwards change events beyond the process, e.g. to other replicas.
type Publisher interface {
	Publish(ctx context.Context, topic string) error
}

// Broadcaster is a topic-keyed, fire-and-forget change channel. Subscribers are
// invoked synchronously on the publishing goroutine and must not block. Events carry
// no payload: subscribers re-read the session record.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(topic string)
	remote Publisher
	logger *logrus.Logger
}

func NewBroadcaster(remote Publisher, logger *logrus.Logger) *Broadcaster {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Broadcaster{
		subs:   make(map[int]func(topic string)),
		remote: remote,
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it. Subscribers
// registered after an event fired never see that event.
func (b *Broadcaster) Subscribe(fn func(topic string)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers topic once to every current subscriber.
func (b *Broadcaster) Publish(ctx context.Context, topic string) {
	b.mu.RLock()
	fns := make([]func(string), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(topic)
	}

	if b.remote != nil {
		if err := b.remote.Publish(ctx, topic); err != nil {
			b.logger.WithError(err).WithField("topic", topic).Warn("session: remote publish failed")
		}
	}
}

// Subscribers reports the number of registered subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// RedisPublisher publishes change events on a Redis channel named prefix+topic.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string) error {
	return p.client.Publish(ctx, p.prefix+topic, "").Err()
}
