/*
Package log provides structured logging for clanrelay using zerolog.

The package keeps a single global zerolog.Logger that every component derives a
child logger from. Output is either human-readable console lines (development)
or one JSON object per line (production), selected at startup through Init.

# Usage

Initializing the Logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component Loggers:

	logger := log.WithComponent("delivery")
	logger.Info().Int("count", 3).Msg("Delivered events")

	pollLog := log.WithPoller("recent")
	pollLog.Warn().Err(err).Int("attempt", 2).Msg("Fetch attempt failed")

Every component in clanrelay logs through a child logger so that lines carry a
component field (and poller or event_id where relevant). Errors are always
attached with .Err(err) rather than formatted into the message.

# Log Output Examples

JSON Format:

	{"level":"info","component":"poller","poller":"recent","fetched":10,"inserted":1,"time":"2026-03-04T19:05:00Z","message":"Poll complete"}
	{"level":"error","component":"delivery","event_id":42,"error":"HTTP 502","time":"2026-03-04T19:05:30Z","message":"Failed to send event"}

Console Format:

	2026-03-04T19:05:00Z INF Poll complete component=poller fetched=10 inserted=1 poller=recent
*/
package log
