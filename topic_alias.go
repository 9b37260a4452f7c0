package mqttv5

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrTopicAliasInvalid  = errors.New("topic alias invalid")
	ErrTopicAliasExceeded = errors.New("topic alias maximum exceeded")
	ErrTopicAliasNotFound = errors.New("topic alias not found")
)

// maxOutboundAliasCache bounds how many outbound alias mappings we keep
// locally regardless of the broker's advertised Topic Alias Maximum. Once
// full, the least recently used mapping is evicted and its alias number
// reassigned to the next topic that needs one.
const maxOutboundAliasCache = 256

// TopicAliasManager manages bidirectional topic alias mapping for a connection.
// Inbound aliases are set by the remote peer, outbound aliases are set locally.
type TopicAliasManager struct {
	mu sync.RWMutex

	inbound    map[uint16]string // aliases received from remote
	inboundMax uint16            // max aliases we accept (our limit)

	outbound     *lru.Cache[string, uint16] // topic -> alias we send to remote
	outboundNext uint16
	outboundMax  uint16 // max aliases remote accepts (their limit)
	freeAliases  []uint16
}

// NewTopicAliasManager creates a new topic alias manager.
// inboundMax is the maximum aliases we accept from remote (sent in our CONNECT/CONNACK).
// outboundMax is the maximum aliases remote accepts (received in their CONNECT/CONNACK).
func NewTopicAliasManager(inboundMax, outboundMax uint16) *TopicAliasManager {
	m := &TopicAliasManager{
		inbound:      make(map[uint16]string),
		outboundNext: 1,
		inboundMax:   inboundMax,
		outboundMax:  outboundMax,
	}
	m.rebuildOutboundCache()
	return m
}

// rebuildOutboundCache must be called with mu held.
func (m *TopicAliasManager) rebuildOutboundCache() {
	size := int(m.outboundMax)
	if size <= 0 {
		size = 1
	}
	if size > maxOutboundAliasCache {
		size = maxOutboundAliasCache
	}
	m.outbound, _ = lru.NewWithEvict[string, uint16](size, func(_ string, alias uint16) {
		m.freeAliases = append(m.freeAliases, alias)
	})
	m.freeAliases = nil
	m.outboundNext = 1
}

// SetInbound registers an inbound alias (received from remote).
func (m *TopicAliasManager) SetInbound(alias uint16, topic string) error {
	if alias == 0 {
		return ErrTopicAliasInvalid
	}

	if m.inboundMax > 0 && alias > m.inboundMax {
		return ErrTopicAliasExceeded
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inbound[alias] = topic
	return nil
}

// GetInbound resolves an inbound alias to topic name.
func (m *TopicAliasManager) GetInbound(alias uint16) (string, error) {
	if alias == 0 {
		return "", ErrTopicAliasInvalid
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	topic, ok := m.inbound[alias]
	if !ok {
		return "", ErrTopicAliasNotFound
	}

	return topic, nil
}

// GetOrCreateOutbound returns the alias to use for topic on an outbound
// PUBLISH. mustSendTopic is true when the caller must include the full
// topic name alongside the alias: either a mapping didn't exist yet, or it
// was just reassigned after an LRU eviction. When alias is 0, no alias is
// available and the topic must be sent in full with no alias property.
func (m *TopicAliasManager) GetOrCreateOutbound(topic string) (alias uint16, mustSendTopic bool) {
	if m.outboundMax == 0 {
		return 0, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.outbound.Get(topic); ok {
		return existing, false
	}

	if len(m.freeAliases) > 0 {
		alias = m.freeAliases[len(m.freeAliases)-1]
		m.freeAliases = m.freeAliases[:len(m.freeAliases)-1]
	} else if m.outboundNext <= m.outboundMax {
		alias = m.outboundNext
		m.outboundNext++
	} else if _, evicted, ok := m.outbound.RemoveOldest(); ok {
		// The eviction callback has queued evicted as free; claim it here.
		if n := len(m.freeAliases); n > 0 && m.freeAliases[n-1] == evicted {
			m.freeAliases = m.freeAliases[:n-1]
		}
		alias = evicted
	} else {
		return 0, true
	}

	m.outbound.Add(topic, alias)
	return alias, true
}

// GetOutbound returns existing outbound alias for topic.
// Returns 0 if no alias exists.
func (m *TopicAliasManager) GetOutbound(topic string) uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alias, _ := m.outbound.Peek(topic)
	return alias
}

// SetOutboundMax updates the outbound maximum (from remote CONNACK) and
// rebuilds the bounded alias cache to the new size.
func (m *TopicAliasManager) SetOutboundMax(maxVal uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outboundMax = maxVal
	m.rebuildOutboundCache()
}

// SetInboundMax updates the inbound maximum.
func (m *TopicAliasManager) SetInboundMax(maxVal uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inboundMax = maxVal
}

// InboundMax returns the inbound alias maximum.
func (m *TopicAliasManager) InboundMax() uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.inboundMax
}

// OutboundMax returns the outbound alias maximum.
func (m *TopicAliasManager) OutboundMax() uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.outboundMax
}

// Clear removes all aliases, used on session_expired (session_present=false)
// where the broker has forgotten any alias mappings we negotiated.
func (m *TopicAliasManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inbound = make(map[uint16]string)
	m.rebuildOutboundCache()
}

// InboundCount returns the number of registered inbound aliases.
func (m *TopicAliasManager) InboundCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.inbound)
}

// OutboundCount returns the number of registered outbound aliases.
func (m *TopicAliasManager) OutboundCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.outbound.Len()
}
