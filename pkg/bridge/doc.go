// Package bridge relays a live phone call between a telephony media stream
// and a hosted realtime speech model, so a caller on an ordinary voice line
// can converse with an AI agent in near-real time.
//
// # Architecture
//
// Each call gets one Session, fed by two independent event loops: one
// reading media-stream events from the telephony gateway, one reading
// structured events from the speech service. Both loops funnel into
// synchronous handler methods guarded by a single mutex, so all mutation
// of a session's state is serialized. No state is shared across sessions.
//
// # Turn taking
//
// The session runs a small state machine:
//
//	Idle → AwaitingSessionReady → AwaitingGreeting → ModelResponding ↔ CallerSpeaking
//
// The greeting fires exactly once, when both the stream has started and
// the speech service has acknowledged configuration, in either order.
// While the model is speaking, a caller speech-start event triggers
// barge-in handling: the spoken item is truncated at the audible cut
// point, the gateway's playback buffer is cleared, and the turn passes
// back to the caller. Barge-in is honored only when playback has actually
// begun (acks outstanding and a response anchor recorded), so playback
// that never started is never cleared.
//
// # Audio pacing
//
// The first few audio chunks of every response are buffered and flushed
// together, which avoids the choppy playback a lone network-sized chunk
// causes at response start. Every outbound frame is paired with a mark so
// the gateway reports playback progress back to the session.
//
// # Usage
//
//	mgr := bridge.NewManager(bridge.DefaultConfig(), realtime.Config{APIKey: key})
//	app.Get("/media-stream", websocket.New(mgr.HandleStream))
package bridge
