// Package email delivers slot notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strings"

	"github.com/fwojciec/akiwatch"
	"github.com/jordan-wright/email"
)

// Ensure Notifier implements akiwatch.Notifier at compile time.
var _ akiwatch.Notifier = (*Notifier)(nil)

// SendFunc delivers a composed message to an SMTP server at addr.
type SendFunc func(msg *email.Email, addr string, auth smtp.Auth) error

// Notifier mails newly found slots.
type Notifier struct {
	config   akiwatch.SMTPConfig
	entryURL string

	// DryRun prints the message to Preview instead of sending it.
	DryRun  bool
	Preview io.Writer

	// SendFunc delivers the message. Defaults to (*email.Email).Send.
	SendFunc SendFunc
}

// NewNotifier creates a Notifier. entryURL is linked at the end of each
// message.
func NewNotifier(config akiwatch.SMTPConfig, entryURL string) *Notifier {
	return &Notifier{
		config:   config,
		entryURL: entryURL,
		Preview:  io.Discard,
		SendFunc: func(msg *email.Email, addr string, auth smtp.Auth) error {
			return msg.Send(addr, auth)
		},
	}
}

// Send mails slots. It returns false without an error for an empty list
// or in dry-run mode. A missing host or recipient is an EINVALID error.
func (n *Notifier) Send(ctx context.Context, slots []akiwatch.Slot) (bool, error) {
	if len(slots) == 0 {
		return false, nil
	}
	if err := n.validate(); err != nil {
		return false, err
	}

	msg := n.Compose(slots)
	if n.DryRun {
		fmt.Fprintf(n.Preview, "Subject: %s\n\n%s", msg.Subject, msg.Text)
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)
	err := n.SendFunc(msg, addr, n.auth())
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.SendFunc(msg, addr, nil)
	}
	if err != nil {
		return false, fmt.Errorf("sending mail: %w", err)
	}
	return true, nil
}

// Compose builds the message for slots.
func (n *Notifier) Compose(slots []akiwatch.Slot) *email.Email {
	msg := email.NewEmail()
	msg.From = n.from()
	msg.To = []string{n.config.To}
	msg.Subject = Subject(n.config.SubjectPrefix, len(slots))
	msg.Text = []byte(Body(slots, n.entryURL))
	return msg
}

// Subject returns the mail subject for count new slots.
func Subject(prefix string, count int) string {
	subject := fmt.Sprintf("新規%d件", count)
	if prefix == "" {
		return subject
	}
	return prefix + " " + subject
}

// Body returns the mail body listing slots one per line.
func Body(slots []akiwatch.Slot, entryURL string) string {
	var b strings.Builder
	b.WriteString("新規で空きが見つかりました：\n\n")
	for i, s := range slots {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "・%s %s / %s", s.DateISO, s.Range(), s.Facility)
	}
	if entryURL != "" {
		fmt.Fprintf(&b, "\n\n検索開始ページ: %s\n", entryURL)
	}
	return b.String()
}

func (n *Notifier) validate() error {
	if n.config.Host == "" {
		return akiwatch.Errorf(akiwatch.EINVALID, "SMTP host not set")
	}
	if n.config.Port <= 0 {
		return akiwatch.Errorf(akiwatch.EINVALID, "SMTP port not set")
	}
	if n.config.To == "" {
		return akiwatch.Errorf(akiwatch.EINVALID, "mail recipient not set")
	}
	return nil
}

func (n *Notifier) from() string {
	if n.config.From != "" {
		return n.config.From
	}
	return n.config.User
}

func (n *Notifier) auth() smtp.Auth {
	if n.config.User == "" || n.config.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", n.config.User, n.config.Password, n.config.Host)
}
