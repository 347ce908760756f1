/*
Package delivery relays stored clan-log events to the chat channel.

Each Deliver call is one tick of the delivery job:

  - resolve the destination channel, abandoning the tick if it is missing
  - select the oldest unsent events
  - checkpoint suppressed categories without sending them
  - send the rest one line at a time, spaced by a rate limiter
  - invoke the donation hook after each relayed vault deposit
  - mark every sent or suppressed event delivered in one batch

Delivery is at-least-once: a crash between a send and the checkpoint resends
the line on the next tick. Ordering holds within a tick only; an event whose
send failed is retried ahead of newer events on the next tick.
*/
package delivery
