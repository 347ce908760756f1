// Package upstream fetches windows of the clan log from the game's public API.
//
// The API has no cursor and no event ids: every request returns the newest N
// entries. Client.FetchLogs retries a failed request up to three times with
// exponential backoff (1s, 2s) and reports the final failure as a *FetchError.
// Retry state lives only inside one call.
package upstream
