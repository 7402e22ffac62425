// Package notify fans opportunity alerts and operational events out to chat
// channels (Telegram, Discord). Senders are independent: one channel failing
// never blocks delivery to the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// Event classifies a notification so operators can subscribe selectively.
type Event string

const (
	EventOpportunity Event = "opportunity"
	EventError       Event = "error"
	EventStartup     Event = "startup"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns the channel identifier (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to its senders, filtered by event type.
// An empty allowed set passes every event.
type Notifier struct {
	senders []Sender
	events  map[Event]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// listed in events are forwarded; an empty list allows all.
func NewNotifier(senders []Sender, events []Event, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[e] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the message to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event Event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", string(event)))
		return nil
	}

	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// ReportError sends an error-class notification. Delivery failures are logged
// and swallowed: an alert about a failure must never become a second failure
// for the caller to handle.
func (n *Notifier) ReportError(ctx context.Context, title, message string) {
	if err := n.Notify(ctx, EventError, title, message); err != nil {
		n.logger.ErrorContext(ctx, "error notification failed",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
	}
}

// OpportunityMessage renders an opportunity into the human-readable alert
// body sent to chat channels.
func OpportunityMessage(opp domain.Opportunity) (title, message string) {
	title = fmt.Sprintf("Opportunity: %s R%d", opp.Race.Meeting.Track, opp.Race.Number)
	var b strings.Builder
	fmt.Fprintf(&b, "Runner: %d. %s\n", opp.Runner.Number, opp.Runner.Name)
	fmt.Fprintf(&b, "Meeting: %s (%s)\n", opp.Race.Meeting.Location, opp.Race.Meeting.Type)
	fmt.Fprintf(&b, "%s fixed %s vs Betfair lay %s\n", opp.Bookmaker, opp.FixedPrice, opp.LayPrice)
	fmt.Fprintf(&b, "Jumps: %s\n", opp.Race.StartTime.UTC().Format("15:04 MST"))
	fmt.Fprintf(&b, "%s", opp.Link)
	return title, b.String()
}

// OpportunitySink adapts the Notifier into a scan-loop sink that alerts on
// every emitted opportunity.
type OpportunitySink struct {
	notifier *Notifier
}

// NewOpportunitySink wraps the Notifier.
func NewOpportunitySink(n *Notifier) *OpportunitySink {
	return &OpportunitySink{notifier: n}
}

// Emit sends the opportunity alert.
func (s *OpportunitySink) Emit(ctx context.Context, opp domain.Opportunity) error {
	title, message := OpportunityMessage(opp)
	return s.notifier.Notify(ctx, EventOpportunity, title, message)
}
