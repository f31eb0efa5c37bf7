package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/compliance-management/internal/core/events"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

// Notice is a single delivery to a single recipient.
type Notice struct {
	TenantID       string
	RecipientID    string
	RecipientEmail string
	Subject        string
	Body           string
}

// Sender delivers a notice over some channel. Delivery failures are
// the sender's own problem to report; the workflow never depends on
// them.
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// LogSender writes notices to the structured log. It stands in for a
// mail or chat integration in development and in tests.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, n Notice) error {
	s.Logger.Info("notification",
		"tenant_id", n.TenantID,
		"recipient", n.RecipientEmail,
		"subject", n.Subject,
		"body", n.Body)
	return nil
}

// Dispatcher subscribes to workflow events and fans deliveries out to
// the users the event concerns. It runs off the request path: a failed
// or slow delivery is logged and dropped, never surfaced to the user
// whose action produced the event.
type Dispatcher struct {
	store  *tenant.Store
	sender Sender
	logger *slog.Logger
}

func NewDispatcher(store *tenant.Store, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// Register wires the dispatcher into the event bus.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeDocumentPending, d.onDocumentPending)
	bus.Subscribe(events.EventTypeDocumentApproved, d.onDocumentResolved)
	bus.Subscribe(events.EventTypeDocumentRejected, d.onDocumentResolved)
}

// onDocumentPending notifies every active holder of the role that now
// owns the decision. A tenant with no eligible approver gets a notice
// in the log instead of a silent stall.
func (d *Dispatcher) onDocumentPending(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.DocumentPendingEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := fmt.Sprintf("Approval required: control %s", ev.ControlID)
	body := fmt.Sprintf("Policy document %s for control %s awaits a decision from the %s.",
		ev.DocumentID, ev.ControlID, ev.RequiredRole)

	recipients, err := d.recipientsWithRole(ctx, ev.TenantID, ev.RequiredRole)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		d.logger.Warn("no eligible approver for pending document",
			"tenant_id", ev.TenantID,
			"document_id", ev.DocumentID,
			"required_role", ev.RequiredRole)
		return nil
	}

	d.deliver(ctx, recipients, subject, body)
	return nil
}

// onDocumentResolved notifies the document's creator of the terminal
// outcome.
func (d *Dispatcher) onDocumentResolved(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.DocumentResolvedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := fmt.Sprintf("Document %s: control %s", ev.Status, ev.ControlID)
	body := fmt.Sprintf("Policy document %s for control %s is now %s.",
		ev.DocumentID, ev.ControlID, ev.Status)

	var recipients []Notice
	err := d.store.View(ctx, ev.TenantID, func(b *tenant.Bundle) error {
		if ev.CreatedBy == "" {
			return nil
		}
		u := b.UserByID(ev.CreatedBy)
		if u == nil || u.AccessExpired(time.Now()) {
			return nil
		}
		recipients = append(recipients, Notice{
			TenantID:       ev.TenantID,
			RecipientID:    u.ID,
			RecipientEmail: u.Email,
		})
		return nil
	})
	if err != nil {
		return err
	}

	d.deliver(ctx, recipients, subject, body)
	return nil
}

func (d *Dispatcher) recipientsWithRole(ctx context.Context, tenantID, role string) ([]Notice, error) {
	var out []Notice
	err := d.store.View(ctx, tenantID, func(b *tenant.Bundle) error {
		for _, u := range b.UsersWithRole(role, time.Now()) {
			out = append(out, Notice{
				TenantID:       tenantID,
				RecipientID:    u.ID,
				RecipientEmail: u.Email,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) deliver(ctx context.Context, recipients []Notice, subject, body string) {
	for _, n := range recipients {
		n.Subject = subject
		n.Body = body
		if err := d.sender.Send(ctx, n); err != nil {
			d.logger.Error("notification delivery failed",
				"tenant_id", n.TenantID,
				"recipient", n.RecipientEmail,
				"error", err)
		}
	}
}
