package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
)

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

type smtpService struct {
	dialer  sender
	breaker *circuitbreaker.CircuitBreaker
	from    string
	tpl     templates
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		breaker: newBreaker(),
		from:    cfg.From,
		tpl:     templates{frontendURL: cfg.FrontendURL},
	}
}

func (s *smtpService) SendDoctorCredentials(ctx context.Context, to, name, token string) error {
	return s.send(ctx, s.tpl.doctorCredentials(to, name, token))
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return s.send(ctx, s.tpl.passwordReset(to, name, token))
}

func (s *smtpService) SendAppointmentNotice(ctx context.Context, to string, notice AppointmentNotice) error {
	return s.send(ctx, s.tpl.appointmentNotice(to, notice))
}

func (s *smtpService) send(ctx context.Context, msg message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, "Clinic")
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	err := s.breaker.Execute(func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

// newBreaker stops dialing a mail server that keeps failing; sends fail fast
// with circuitbreaker.ErrOpen until the cool-down passes.
func newBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "smtp",
		MaxFailures: 5,
		Timeout:     30 * time.Second,
	})
}

// New returns the SMTP sender, or the logging one when cfg.Host is empty.
func New(cfg SMTPConfig, logger zerolog.Logger) Service {
	if cfg.Host == "" {
		logger.Warn().Msg("SMTP host not configured, emails will be logged")
		return NewLogService(logger, cfg.FrontendURL)
	}
	return NewSMTPService(cfg)
}
