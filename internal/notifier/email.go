package notifier

import (
	"fmt"

	"github.com/microcred/microcred-api/internal/config"
	"github.com/microcred/microcred-api/internal/models"
	"gopkg.in/gomail.v2"
)

type Notifier interface {
	NotifyGrant(participant models.User, award models.Award) error
}

// EmailNotifier mails the participant when they earn an award.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailNotifier(cfg *config.Config) (*EmailNotifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST not configured")
	}
	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.SMTPFrom,
	}, nil
}

func (n *EmailNotifier) NotifyGrant(participant models.User, award models.Award) error {
	if participant.Email == "" {
		return fmt.Errorf("participant has no email address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", participant.Email)
	m.SetHeader("Subject", fmt.Sprintf("You've earned: %s", award.Name))
	m.SetBody("text/plain", fmt.Sprintf("Congrats! You received the '%s' badge.", award.Name))

	return n.dialer.DialAndSend(m)
}
