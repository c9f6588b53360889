package email

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
)

type Service interface {
	// SendDoctorCredentials mails a new doctor the link to set their password.
	SendDoctorCredentials(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
	SendAppointmentNotice(ctx context.Context, to string, notice AppointmentNotice) error
}

// AppointmentNotice describes one appointment change mailed to the patient.
type AppointmentNotice struct {
	EventType   string
	PatientName string
	Date        string
	TimeSlot    string
	Status      string
}

// message is a rendered email, independent of the transport.
type message struct {
	To      string
	Subject string
	HTML    string
}

// templates renders every email the clinic sends. Links point at the
// frontend, which posts the token back to the API.
type templates struct {
	frontendURL string
}

func (t templates) link(path, token string) string {
	return strings.TrimRight(t.frontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (t templates) doctorCredentials(to, name, token string) message {
	return message{
		To:      to,
		Subject: "Your Doctor Account Credentials",
		HTML: fmt.Sprintf(`<h3>Welcome, Dr. %s!</h3>
<p>Your account has been created.</p>
<p>Please click below to set your password and activate your account:</p>
<a href="%s">Set Your Password</a>`,
			html.EscapeString(name), html.EscapeString(t.link("/doctors/resetPassword", token))),
	}
}

func (t templates) passwordReset(to, name, token string) message {
	return message{
		To:      to,
		Subject: "Reset Your Password",
		HTML: fmt.Sprintf(`<h3>Hello, %s</h3>
<p>You requested a password reset.</p>
<p>Please click below to reset your password:</p>
<a href="%s">Reset Password</a>
<p>This link will expire in 1 hour.</p>`,
			html.EscapeString(name), html.EscapeString(t.link("/auth/resetPassword", token))),
	}
}

func (t templates) appointmentNotice(to string, n AppointmentNotice) message {
	var subject, lead string
	switch n.EventType {
	case "appointment.created":
		subject, lead = "Appointment request received", "We received your appointment request"
	case "appointment.cancelled":
		subject, lead = "Appointment cancelled", "Your appointment has been cancelled"
	case "appointment.rescheduled":
		subject, lead = "Appointment rescheduled", "Your appointment has been moved"
	default:
		subject, lead = "Appointment "+strings.ToLower(n.Status), "Your appointment status is now "+n.Status
	}

	return message{
		To:      to,
		Subject: subject,
		HTML: fmt.Sprintf(`<h3>Hello, %s</h3>
<p>%s.</p>
<p>Date: %s<br>Time: %s<br>Status: %s</p>`,
			html.EscapeString(n.PatientName), html.EscapeString(lead),
			html.EscapeString(n.Date), html.EscapeString(n.TimeSlot), html.EscapeString(n.Status)),
	}
}
