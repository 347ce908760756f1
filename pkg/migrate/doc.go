// Package migrate imports clan-log rows exported from a previous deployment
// into the event store.
package migrate
