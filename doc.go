// Package mqttv5 implements an asynchronous MQTT v5.0 client.
//
// This package implements the MQTT Version 5.0 OASIS Standard:
// https://docs.oasis-open.org/mqtt/mqtt/v5.0/mqtt-v5.0.html
//
// # Features
//
//   - All 15 MQTT v5.0 control packet types, full properties system
//   - QoS 0, 1, 2 publish flows with in-flight state machines
//   - Multi-broker failover with round-robin selection and backoff
//   - Session replay on session_present; otherwise in-flight state is
//     discarded and pending operations fail with ErrConnectionLost
//   - Topic alias negotiation with bounded LRU eviction
//   - Transport: TCP, TLS, WebSocket, WSS, Unix domain sockets, QUIC
//   - Enhanced (SCRAM) authentication
//
// # Packet Types
//
// The package provides structs for all MQTT v5.0 control packets:
//
//   - ConnectPacket, ConnackPacket: connection establishment
//   - PublishPacket, PubackPacket, PubrecPacket, PubrelPacket, PubcompPacket: message delivery
//   - SubscribePacket, SubackPacket: topic subscription
//   - UnsubscribePacket, UnsubackPacket: topic unsubscription
//   - PingreqPacket, PingrespPacket: keep-alive
//   - DisconnectPacket: connection termination
//   - AuthPacket: enhanced authentication
//
// Use ReadPacket and WritePacket to read/write packets from/to a connection:
//
//	pkt, n, err := mqttv5.ReadPacket(conn, maxPacketSize)
//	n, err := mqttv5.WritePacket(conn, packet, maxPacketSize)
//
// # Client
//
// Use Dial to connect to a broker, or NewClient with builder-style options
// and Run for multi-broker, auto-reconnecting clients:
//
//	client, err := mqttv5.Dial("tcp://localhost:1883",
//	    mqttv5.WithClientID("my-client"),
//	    mqttv5.WithKeepAlive(60),
//	)
//	defer client.Close()
//
// TLS connections:
//
//	client, err := mqttv5.Dial("tls://localhost:8883",
//	    mqttv5.WithTLS(&tls.Config{}),
//	)
//
// With auto-reconnect enabled, multi-broker clients try the next address in
// the list on each reconnect attempt and wait a backoff delay before every
// attempt, not only after the whole list has been tried; the delay doubles
// after each failed attempt up to the maximum backoff:
//
//	client, err := mqttv5.NewClient(
//	    mqttv5.WithBrokers("broker-a:1883,broker-b:1883"),
//	    mqttv5.WithCredentials("user", "pass"),
//	)
//	go client.Run(ctx)
//
//	msg, err := client.Receive(ctx)
//
// # Session Management
//
// Session state can be managed using the Session and SessionStore
// interfaces. A reference implementation is provided with MemorySession and
// MemorySessionStore:
//
//	store := mqttv5.NewMemorySessionStore()
//	session := mqttv5.NewMemorySession("client-id")
//	store.Create(session)
//
// # QoS State Machines
//
// For QoS 1 and 2 message flows, use the provided state machines:
//
//	tracker := mqttv5.NewQoS1Tracker(retryTimeout, maxRetries)
//	tracker.Track(packetID, message)
//	tracker.Acknowledge(packetID)
//
//	tracker := mqttv5.NewQoS2Tracker(retryTimeout, maxRetries)
//	tracker.TrackSend(packetID, message)
//	tracker.HandlePubrec(packetID)
//	tracker.HandlePubcomp(packetID)
//
// # Flow Control
//
// Flow control bounds the number of in-flight QoS 1/2 publishes against the
// broker's advertised Receive Maximum:
//
//	fc := mqttv5.NewFlowController(receiveMaximum)
//	if fc.CanSend() {
//	    fc.Acquire()
//	}
//	fc.Release()
//
// # Topic Matching
//
// Topic validation and matching support MQTT wildcards:
//
//	err := mqttv5.ValidateTopicName("sensors/temperature")
//	err = mqttv5.ValidateTopicFilter("sensors/+/status")
//	matched := mqttv5.TopicMatch("sensors/#", "sensors/room1/temp")
//	shared, _ := mqttv5.ParseSharedSubscription("$share/group/topic")
//
// # Enhanced Authentication
//
// Implement ClientEnhancedAuthenticator for multi-step (e.g. SCRAM) auth
// exchanges, or use the built-in SCRAMClientAuthenticator:
//
//	auth := mqttv5.NewSCRAMClientAuthenticator(mqttv5.SCRAMHashSHA256, "user", "pass")
//	client, err := mqttv5.NewClient(mqttv5.WithEnhancedAuthentication(auth))
//
// # Metrics and Logging
//
// Use the built-in metrics collector and Logger interface for operational
// visibility:
//
//	metrics := mqttv5.NewMemoryMetrics()
//	logger := mqttv5.NewStdLogger(os.Stdout, mqttv5.LogLevelInfo)
package mqttv5
