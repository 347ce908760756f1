// Package channel resolves chat channels by name and delivers messages to them.
//
// A Directory knows how to find a channel on the chat platform; Resolver wraps
// one with a per-process cache and is handed explicitly to every component that
// posts messages. WebhookDirectory is the production directory: each configured
// channel name maps to an incoming-webhook URL and messages are POSTed as JSON.
package channel
