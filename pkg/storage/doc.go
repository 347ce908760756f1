/*
Package storage provides BoltDB-backed persistence for clan-log events.

The store is the only shared mutable state in clanrelay. Both pollers insert into
it and the delivery worker drains it; they never talk to each other directly.
Correctness rests on two primitives:

  - InsertIfAbsent: an atomic check-and-put on the natural identity key, so
    overlapping poll windows and racing pollers produce exactly one row per
    upstream entry.
  - MarkDelivered: a one-way, idempotent checkpoint. Marking twice is harmless.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  File: <dataDir>/clanrelay.db                              │
	│                                                            │
	│  events    id (uint64, big-endian)    -> JSON Event        │
	│  identity  sha256(identity tuple)     -> id                │
	│  unsent    timestamp ‖ id             -> (empty)           │
	│                                                            │
	│  Insert:   identity miss -> events + identity + unsent     │
	│  Select:   cursor over unsent from First (oldest first)    │
	│  Checkpoint: events[id].delivered = true, delete unsent    │
	└────────────────────────────────────────────────────────┘

Bolt keeps keys sorted and serializes write transactions, which gives both the
delivery order (timestamp, then insertion id) and the atomicity of
insert-if-absent without any locking in this package.

# Usage

	store, err := storage.NewBoltStore("/var/lib/clanrelay")
	if err != nil {
		return err
	}
	defer store.Close()

	inserted, err := store.InsertIfAbsent(event)
	pending, err := store.SelectUnsent(10)
	err = store.MarkDelivered([]uint64{pending[0].ID})

Errors from bolt are returned to the caller unchanged (wrapped); the store never
retries on its own.
*/
package storage
