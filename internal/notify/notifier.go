package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bureau-engine/internal/domain"
)

// Notifier reacts to domain events that should reach a human.
type Notifier interface {
	ContactSubmitted(ctx context.Context, contact domain.Contact) error
	ProjectCreated(ctx context.Context, project domain.Project) error
}

// MailNotifier turns events into emails.
type MailNotifier struct {
	mailer    Mailer
	adminAddr string
}

func NewMailNotifier(mailer Mailer, adminAddr string) *MailNotifier {
	return &MailNotifier{mailer: mailer, adminAddr: adminAddr}
}

func (n *MailNotifier) ContactSubmitted(ctx context.Context, contact domain.Contact) error {
	var errs []error
	if n.adminAddr != "" {
		errs = append(errs, n.mailer.Send(ctx, ContactNotification(contact, n.adminAddr)))
	}
	errs = append(errs, n.mailer.Send(ctx, ContactConfirmation(contact)))
	return errors.Join(errs...)
}

func (n *MailNotifier) ProjectCreated(ctx context.Context, project domain.Project) error {
	if n.adminAddr == "" {
		return nil
	}
	return n.mailer.Send(ctx, ProjectNotification(project, n.adminAddr))
}

// Async hands events to the next notifier on a background goroutine so
// request handlers never wait on delivery. Wait blocks until in-flight
// deliveries finish.
type Async struct {
	next    Notifier
	logger  logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, logger logrus.FieldLogger, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{next: next, logger: logger, timeout: timeout}
}

func (a *Async) ContactSubmitted(ctx context.Context, contact domain.Contact) error {
	a.dispatch(ctx, "contact_submitted", func(ctx context.Context) error {
		return a.next.ContactSubmitted(ctx, contact)
	})
	return nil
}

func (a *Async) ProjectCreated(ctx context.Context, project domain.Project) error {
	a.dispatch(ctx, "project_created", func(ctx context.Context) error {
		return a.next.ProjectCreated(ctx, project)
	})
	return nil
}

func (a *Async) dispatch(parent context.Context, event string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.timeout)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()
		if err := fn(ctx); err != nil {
			a.logger.WithField("event", event).Errorf("notification failed: %v", err)
		}
	}()
}

func (a *Async) Wait() {
	a.wg.Wait()
}

var (
	_ Notifier = (*MailNotifier)(nil)
	_ Notifier = (*Async)(nil)
)
