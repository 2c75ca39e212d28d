// Package events implements the change notifier used by the pipeline
// store. Listeners subscribe to named events with an optional priority
// and receive synchronous deliveries in priority order. Listener
// failures and panics are isolated per delivery so one faulty listener
// cannot suppress the rest.
package events
