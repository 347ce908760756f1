/*
Package events provides an in-process broker for relay activity notifications.

Pollers publish EventInserted when a tick stores new clan-log entries and
EventFetchAbandoned when the upstream fetch gives up. The delivery worker
publishes EventDelivered, EventSendFailed, EventHookFailed and
EventDeliveryBlocked. Notifications only carry ids and counts in Metadata;
subscribers that need the entries read them from the store.

The run command subscribes to EventInserted to trigger an early delivery tick
when delivery.trigger_on_insert is set.

Usage:

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for ev := range sub {
		fmt.Println(ev.Type, ev.Metadata)
	}

Publish never blocks. Events are dropped when the broker queue or a
subscriber's buffer is full, so subscribers must not rely on seeing every
notification.
*/
package events
