package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// StartEventConsumer consumes court.events until ctx is cancelled and
// appends one line per event to <dir>/matches.log.  Broker failures are
// retried with exponential backoff capped at 30s; a message that cannot
// be handled is rejected without requeue so it cannot loop.
func StartEventConsumer(ctx context.Context, url, dir string) error {
	logger := log.With().Str("component", "events").Logger()
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", backoff).Msg("dial broker failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, dir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return eris.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Str("component", "events").Msg("set QoS failed")
	}
	if _, err := declareEventsQueue(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(EventsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return eris.Wrap(err, "queue consume")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(dir, d.Body); err != nil {
				log.Error().Err(err).Str("component", "events").Msg("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends it to <dir>/matches.log.
func HandleMessage(dir string, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return eris.Wrap(err, "unmarshal")
	}
	if ev.Type == "" {
		return eris.New("event without type")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "mkdir logs")
	}
	f, err := os.OpenFile(filepath.Join(dir, "matches.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "open log file")
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev)); err != nil {
		return eris.Wrap(err, "write log")
	}
	return nil
}

// FormatEvent renders an event as a single log line.
func FormatEvent(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | session_id=%s", ev.OccurredAt, ev.Type, ev.SessionID)
	if ev.CourtID != "" {
		fmt.Fprintf(&b, " | court_id=%s", ev.CourtID)
	}
	if ev.MatchID != "" {
		fmt.Fprintf(&b, " | match_id=%s", ev.MatchID)
	}
	if len(ev.MatchIDs) > 0 {
		fmt.Fprintf(&b, " | matches=[%s]", strings.Join(ev.MatchIDs, ","))
	}
	if len(ev.PlayerIDs) > 0 {
		fmt.Fprintf(&b, " | players=[%s]", strings.Join(ev.PlayerIDs, ","))
	}
	if len(ev.Scores) > 0 {
		sets := make([]string, len(ev.Scores))
		for i, s := range ev.Scores {
			sets[i] = fmt.Sprintf("%d-%d", s.Team1, s.Team2)
		}
		fmt.Fprintf(&b, " | score=%s", strings.Join(sets, " "))
	}
	switch {
	case ev.IsDraw:
		b.WriteString(" | draw")
	case len(ev.WinnerIDs) > 0:
		fmt.Fprintf(&b, " | winners=[%s]", strings.Join(ev.WinnerIDs, ","))
	}
	if ev.Notes != "" {
		fmt.Fprintf(&b, " | notes=%q", ev.Notes)
	}
	b.WriteString("\n")
	return b.String()
}
