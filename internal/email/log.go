package email

import (
	"context"

	"github.com/rs/zerolog"
)

type logService struct {
	logger zerolog.Logger
	tpl    templates
}

// NewLogService writes emails to the log instead of sending them. It is used
// when no SMTP host is configured.
func NewLogService(logger zerolog.Logger, frontendURL string) Service {
	return &logService{
		logger: logger.With().Str("component", "email").Logger(),
		tpl:    templates{frontendURL: frontendURL},
	}
}

func (s *logService) SendDoctorCredentials(ctx context.Context, to, name, token string) error {
	return s.log(s.tpl.doctorCredentials(to, name, token))
}

func (s *logService) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return s.log(s.tpl.passwordReset(to, name, token))
}

func (s *logService) SendAppointmentNotice(ctx context.Context, to string, notice AppointmentNotice) error {
	return s.log(s.tpl.appointmentNotice(to, notice))
}

func (s *logService) log(msg message) error {
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email not sent, smtp disabled")
	return nil
}
