package mqttv5

import "time"

// MetricType identifies the shape of a metric's values.
type MetricType int

const (
	MetricTypeCounter MetricType = iota
	MetricTypeGauge
	MetricTypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case MetricTypeCounter:
		return "counter"
	case MetricTypeGauge:
		return "gauge"
	case MetricTypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// MetricLabels carries metric dimensions (e.g. packet type, QoS).
type MetricLabels map[string]string

// Metrics is the low-level collector a backend (Prometheus, StatsD, ...)
// implements: named, labeled counters/gauges/histograms.
type Metrics interface {
	Counter(name string, labels MetricLabels) Counter
	Gauge(name string, labels MetricLabels) Gauge
	Histogram(name string, labels MetricLabels) Histogram
}

// Counter is monotonically increasing.
type Counter interface {
	Inc()
	Add(delta float64)
	Value() float64
}

// Gauge can move in either direction.
type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Add(delta float64)
	Sub(delta float64)
	Value() float64
}

// Histogram tracks a distribution of observed values.
type Histogram interface {
	Observe(value float64)
	ObserveDuration(d time.Duration)
	Count() uint64
	Sum() float64
}

// MetricsCollector is the named, typed surface the client reports
// through (ConnectionOpened, PacketSent, ...), instead of scattering raw
// Counter/Gauge/Histogram lookups through client.go. NoOpMetrics and
// MemoryMetrics implement it directly; ClientMetrics adapts it onto any
// Metrics backend that only speaks Counter/Gauge/Histogram.
type MetricsCollector interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageReceived(qos byte)
	MessageSent(qos byte)
	BytesReceived(n int)
	BytesSent(n int)
	SubscriptionAdded()
	SubscriptionRemoved()
	RetainedMessageSet()
	RetainedMessageRemoved()
	PublishLatency(d time.Duration)
	PacketReceived(packetType PacketType)
	PacketSent(packetType PacketType)
}

// NoOpMetrics discards every recorded value; it is the default Metrics
// and MetricsCollector implementation when none is configured.
type NoOpMetrics struct{}

func (n *NoOpMetrics) Counter(_ string, _ MetricLabels) Counter     { return noOpCounter{} }
func (n *NoOpMetrics) Gauge(_ string, _ MetricLabels) Gauge         { return noOpGauge{} }
func (n *NoOpMetrics) Histogram(_ string, _ MetricLabels) Histogram { return noOpHistogram{} }

func (n *NoOpMetrics) ConnectionOpened()               {}
func (n *NoOpMetrics) ConnectionClosed()               {}
func (n *NoOpMetrics) MessageReceived(_ byte)          {}
func (n *NoOpMetrics) MessageSent(_ byte)              {}
func (n *NoOpMetrics) BytesReceived(_ int)             {}
func (n *NoOpMetrics) BytesSent(_ int)                 {}
func (n *NoOpMetrics) SubscriptionAdded()              {}
func (n *NoOpMetrics) SubscriptionRemoved()            {}
func (n *NoOpMetrics) RetainedMessageSet()             {}
func (n *NoOpMetrics) RetainedMessageRemoved()         {}
func (n *NoOpMetrics) PublishLatency(_ time.Duration)  {}
func (n *NoOpMetrics) PacketReceived(_ PacketType)     {}
func (n *NoOpMetrics) PacketSent(_ PacketType)          {}

type noOpCounter struct{}

func (noOpCounter) Inc()           {}
func (noOpCounter) Add(_ float64)  {}
func (noOpCounter) Value() float64 { return 0 }

type noOpGauge struct{}

func (noOpGauge) Set(_ float64)  {}
func (noOpGauge) Inc()           {}
func (noOpGauge) Dec()           {}
func (noOpGauge) Add(_ float64)  {}
func (noOpGauge) Sub(_ float64)  {}
func (noOpGauge) Value() float64 { return 0 }

type noOpHistogram struct{}

func (noOpHistogram) Observe(_ float64)              {}
func (noOpHistogram) ObserveDuration(_ time.Duration) {}
func (noOpHistogram) Count() uint64                  { return 0 }
func (noOpHistogram) Sum() float64                   { return 0 }

// Metric and label names the client reports under. Kept as exported
// constants so a Metrics implementation (or a dashboard built against
// one) has a stable name to key on.
const (
	MetricConnections       = "mqtt_connections"
	MetricConnectionsTotal  = "mqtt_connections_total"
	MetricMessagesReceived  = "mqtt_messages_received_total"
	MetricMessagesSent      = "mqtt_messages_sent_total"
	MetricBytesReceived     = "mqtt_bytes_received_total"
	MetricBytesSent         = "mqtt_bytes_sent_total"
	MetricSubscriptions     = "mqtt_subscriptions"
	MetricRetainedMessages  = "mqtt_retained_messages"
	MetricPublishLatency    = "mqtt_publish_latency_seconds"
	MetricPacketsSent       = "mqtt_packets_sent_total"
	MetricPacketsReceived   = "mqtt_packets_received_total"
)

const (
	LabelPacketType = "packet_type"
	LabelQoS        = "qos"
	LabelReasonCode = "reason_code"
	LabelClientID   = "client_id"
	LabelTopic      = "topic"
)

// ClientMetrics adapts a raw Metrics backend onto MetricsCollector, for
// backends (Prometheus, StatsD, ...) that only implement
// Counter/Gauge/Histogram and have no notion of MQTT-specific events.
type ClientMetrics struct {
	metrics Metrics
}

// NewClientMetrics wraps m, falling back to a no-op collector if m is nil.
func NewClientMetrics(m Metrics) *ClientMetrics {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &ClientMetrics{metrics: m}
}

func (c *ClientMetrics) ConnectionOpened() {
	c.metrics.Gauge(MetricConnections, nil).Inc()
	c.metrics.Counter(MetricConnectionsTotal, nil).Inc()
}

func (c *ClientMetrics) ConnectionClosed() {
	c.metrics.Gauge(MetricConnections, nil).Dec()
}

func (c *ClientMetrics) MessageReceived(qos byte) {
	c.metrics.Counter(MetricMessagesReceived, MetricLabels{LabelQoS: qosLabel(qos)}).Inc()
}

func (c *ClientMetrics) MessageSent(qos byte) {
	c.metrics.Counter(MetricMessagesSent, MetricLabels{LabelQoS: qosLabel(qos)}).Inc()
}

func (c *ClientMetrics) BytesReceived(n int) {
	c.metrics.Counter(MetricBytesReceived, nil).Add(float64(n))
}

func (c *ClientMetrics) BytesSent(n int) {
	c.metrics.Counter(MetricBytesSent, nil).Add(float64(n))
}

func (c *ClientMetrics) SubscriptionAdded() {
	c.metrics.Gauge(MetricSubscriptions, nil).Inc()
}

func (c *ClientMetrics) SubscriptionRemoved() {
	c.metrics.Gauge(MetricSubscriptions, nil).Dec()
}

func (c *ClientMetrics) RetainedMessageSet() {
	c.metrics.Gauge(MetricRetainedMessages, nil).Inc()
}

func (c *ClientMetrics) RetainedMessageRemoved() {
	c.metrics.Gauge(MetricRetainedMessages, nil).Dec()
}

func (c *ClientMetrics) PublishLatency(d time.Duration) {
	c.metrics.Histogram(MetricPublishLatency, nil).ObserveDuration(d)
}

func (c *ClientMetrics) PacketReceived(packetType PacketType) {
	c.metrics.Counter(MetricPacketsReceived, MetricLabels{LabelPacketType: packetType.String()}).Inc()
}

func (c *ClientMetrics) PacketSent(packetType PacketType) {
	c.metrics.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: packetType.String()}).Inc()
}

// qosLabel renders a QoS level as its label value, clamping anything
// above QoS 2 (which the wire format can't represent) down to 2.
func qosLabel(qos byte) string {
	if qos > 2 {
		qos = 2
	}
	return string(rune('0' + qos))
}
