// Package mqtt maintains the broker connection and publishes
// temperature readings.
//
// The client uses Eclipse Paho v2's [autopaho] package for connection
// management. Keep-alive pings and reconnection run on autopaho's own
// goroutines, continuously, so the control loop never has to service
// the protocol itself; the loop only observes connection state and
// blocks in [Client.EnsureConnected] when it wants to wait for the
// link to come back.
//
// Publishing is best-effort, fire and forget: QoS 0, no retain, and a
// boolean result. The caller decides what a false means — for the
// monitor that is "do not advance the last-good reading, show the
// failure marker."
package mqtt
