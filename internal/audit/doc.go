// Package audit relays security events from the account engine to pluggable sinks.
//
// [Dispatcher] buffers events and forwards them on its own goroutine, so request
// paths never block on a slow sink. With DropIfFull set, overflow is counted and
// discarded. [LogrusSink] is the default sink in the server; [JSONWriterSink] and
// [ChannelSink] serve files and tests.
//
// The package does not decide which events to emit. That belongs to the engine
// and the flow functions.
package audit
