package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kioskpe/letslegal-api/internal/models"
	"github.com/kioskpe/letslegal-api/pkg/jobs"
)

type mailSender interface {
	Send(to, subject, htmlBody string) error
	AdminEmail() string
}

type emailPayload struct {
	To      string
	Subject string
	Body    string
}

// NotificationService delivers transactional email through a background
// queue. Every method is fire-and-forget: delivery problems are logged and
// never surface to the request that triggered them.
type NotificationService struct {
	queue   *jobs.Queue
	mailer  mailSender
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService constructs the notification dispatcher.
func NewNotificationService(mailer mailSender, logger *zap.Logger, enabled bool, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mailer: mailer, logger: logger, enabled: enabled}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, queueCfg)
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailPayload)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.mailer.Send(payload.To, payload.Subject, payload.Body)
}

func (s *NotificationService) enqueue(kind string, payload emailPayload) {
	if !s.enabled || s.mailer == nil || payload.To == "" {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: payload}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("type", kind), zap.Error(err))
	}
}

// RequestSubmitted sends the customer confirmation and the admin alert for a
// new service request.
func (s *NotificationService) RequestSubmitted(req *models.ServiceRequest) {
	s.enqueue("request_confirmation", emailPayload{
		To:      req.Email,
		Subject: "We received your service request",
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Thanks for reaching out. Your request for <strong>%s</strong> has been received and is pending review.</p>
<p>Your reference ID is <strong>%s</strong>. You can use it any time to track progress.</p>
<p>The LetsLegal Team</p>`,
			req.Name, req.ServiceType, req.ID),
	})
	s.enqueue("request_admin_alert", emailPayload{
		To:      s.mailer.AdminEmail(),
		Subject: fmt.Sprintf("New service request: %s", req.ServiceType),
		Body: fmt.Sprintf(
			`<p>A new service request has been submitted.</p>
<ul>
<li>Reference: %s</li>
<li>Service: %s</li>
<li>Customer: %s (%s, %s)</li>
</ul>`,
			req.ID, req.ServiceType, req.Name, req.Email, req.Phone),
	})
}

// RequestStatusChanged notifies the customer of a lifecycle transition.
func (s *NotificationService) RequestStatusChanged(req *models.ServiceRequest, note *string) {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>The status of your request <strong>%s</strong> has changed to <strong>%s</strong>.</p>`,
		req.Name, req.ID, req.Status)
	if note != nil && *note != "" {
		body += fmt.Sprintf("<p>Note from our team: %s</p>", *note)
	}
	body += "<p>The LetsLegal Team</p>"

	s.enqueue("status_update", emailPayload{
		To:      req.Email,
		Subject: fmt.Sprintf("Your service request is now %s", req.Status),
		Body:    body,
	})
}

// InquiryReceived sends the contact form auto-reply and the admin alert.
func (s *NotificationService) InquiryReceived(inquiry *models.ContactInquiry) {
	s.enqueue("inquiry_auto_reply", emailPayload{
		To:      inquiry.Email,
		Subject: "We received your message",
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Thanks for contacting us about <strong>%s</strong>. Our team will get back to you shortly.</p>
<p>The LetsLegal Team</p>`,
			inquiry.Name, inquiry.Subject),
	})
	s.enqueue("inquiry_admin_alert", emailPayload{
		To:      s.mailer.AdminEmail(),
		Subject: fmt.Sprintf("New contact inquiry: %s", inquiry.Subject),
		Body: fmt.Sprintf(
			`<p>A new inquiry has arrived.</p>
<ul>
<li>From: %s (%s, %s)</li>
<li>Subject: %s</li>
</ul>
<p>%s</p>`,
			inquiry.Name, inquiry.Email, inquiry.Phone, inquiry.Subject, inquiry.Message),
	})
}

// PasswordResetRequested emails the reset link to the account owner.
func (s *NotificationService) PasswordResetRequested(user *models.User, resetLink string) {
	s.enqueue("password_reset", emailPayload{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>We received a request to reset your password. The link below is valid for a limited time.</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>`,
			user.Name, resetLink),
	})
}
