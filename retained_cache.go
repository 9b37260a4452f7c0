package mqttv5

import "time"

// RetainedMessageCache is a ConsumerInterceptor that remembers the most
// recent retained message observed per topic, backed by a MessageStore.
// Applications that subscribe after a retained message was already
// delivered once (e.g. across an internal resubscribe) can look it up
// locally instead of waiting for the broker to redeliver it.
type RetainedMessageCache struct {
	store  MessageStore
	expiry time.Duration
}

// NewRetainedMessageCache creates a cache backed by store. If store is nil,
// an in-memory MemoryMessageStore is used. expiry, if nonzero, bounds how
// long a retained message is remembered before Cleanup can evict it.
func NewRetainedMessageCache(store MessageStore, expiry time.Duration) *RetainedMessageCache {
	if store == nil {
		store = NewMemoryMessageStore()
	}
	return &RetainedMessageCache{store: store, expiry: expiry}
}

// OnConsume records retained messages and passes every message through
// unchanged.
func (c *RetainedMessageCache) OnConsume(msg *Message) *Message {
	if msg != nil && msg.Retain {
		_ = c.store.Store(msg.Topic, msg, c.expiry)
	}
	return msg
}

// Lookup returns the last retained message seen for topic, if any.
func (c *RetainedMessageCache) Lookup(topic string) (*Message, bool) {
	return c.store.Get(topic)
}

// Cleanup evicts expired entries and returns the number removed.
func (c *RetainedMessageCache) Cleanup() int {
	return c.store.Cleanup()
}
