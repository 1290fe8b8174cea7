package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"familytree/internal/logger"
)

// emailSender is the part of the SES v2 client the service uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     emailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	logger     *logger.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is disabled and every send is a logged no-op.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, log *logger.Logger) (*EmailService, error) {
	if log == nil {
		log = logger.Nop()
	}
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, appBaseURL: appBaseURL, logger: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, log), nil
}

func newEmailService(client emailSender, fromEmail, fromName, appBaseURL string, log *logger.Logger) *EmailService {
	if log == nil {
		log = logger.Nop()
	}
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		enabled:    client != nil && fromEmail != "",
		logger:     log,
	}
}

// SetDebug makes a disabled service log the text of every email it would have sent
func (s *EmailService) SetDebug(debug bool) {
	if s != nil {
		s.debug = debug
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendWelcomeEmail greets a newly registered user
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	subject := "Welcome to Family Tree"
	paragraphs := []string{
		fmt.Sprintf("Hi %s,", toName),
		"Your account is ready. Start by adding your parents, children and spouse, then invite relatives to join your family.",
	}
	return s.send(ctx, toEmail, subject, "Welcome!", paragraphs, "Open Family Tree", s.appBaseURL)
}

// SendInvitationEmail sends a family invitation with its join link
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, inviterName, familyName, code string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/invitations/%s", s.appBaseURL, code)
	subject := fmt.Sprintf("%s invited you to the %s family", inviterName, familyName)
	paragraphs := []string{
		"Hello,",
		fmt.Sprintf("%s has invited you to join the %s family tree.", inviterName, familyName),
		fmt.Sprintf("This invitation expires on %s.", expiresAt.Format("January 2, 2006")),
	}
	return s.send(ctx, toEmail, subject, "You're invited", paragraphs, "Join the family", link)
}

// SendNotificationEmail forwards an in-app notification by email
func (s *EmailService) SendNotificationEmail(ctx context.Context, toEmail, toName, message string) error {
	paragraphs := []string{
		fmt.Sprintf("Hi %s,", toName),
		message,
	}
	return s.send(ctx, toEmail, "New activity in your family", "New activity", paragraphs, "See what's new", s.appBaseURL+"/notifications")
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, heading string, paragraphs []string, buttonText, link string) error {
	if s == nil {
		return nil
	}
	htmlBody, textBody := renderEmail(heading, paragraphs, buttonText, link)
	if !s.enabled {
		if s.debug {
			s.logger.Info("email not sent (service disabled)", "to", toEmail, "subject", subject, "body", textBody)
			return nil
		}
		s.logger.Debug("skipping email send (service disabled)", "to", toEmail, "subject", subject)
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.logger.Info("email sent", "to", toEmail, "subject", subject, "message_id", messageID)
	return nil
}

// renderEmail builds matching HTML and plain text bodies. Paragraph text is escaped.
func renderEmail(heading string, paragraphs []string, buttonText, link string) (string, string) {
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "\t\t\t<p>%s</p>\n", html.EscapeString(p))
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #3d7a4f; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3d7a4f; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
%s			<p style="text-align: center;">
				<a href="%s" class="button">%s</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Family Tree. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(heading), body.String(), html.EscapeString(link), html.EscapeString(buttonText))

	textBody := strings.Join(paragraphs, "\n\n") + fmt.Sprintf("\n\n%s: %s\n\n---\nThis is an automated email from Family Tree. Please do not reply.\n", buttonText, link)
	return htmlBody, textBody
}
