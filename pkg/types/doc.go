/*
Package types defines the data model shared by every clanrelay package.

The central type is Event, one clan-log entry after parsing and classification.
Events are identified by their natural identity (clan name, actor, text and UTC
timestamp); the upstream API provides no event ID, so this tuple is the only
thing that lets two overlapping poll windows agree that they saw the same entry.

Category is a closed enum. Every event carries exactly one category, computed
from its text once at ingestion time and never changed afterwards.

	ev := &types.Event{
		ClanName:  "KlutzCo",
		Actor:     "Bob",
		Text:      "Bob added 500x Gold.",
		Timestamp: time.Date(2026, 3, 4, 19, 5, 0, 0, time.UTC),
		Category:  types.CategoryVaultDeposit,
	}
	key := ev.Identity()

The ID field is an insertion ordinal assigned by the store. It breaks ties
between events with the same timestamp and addresses checkpoints, but it is not
part of the identity.
*/
package types
