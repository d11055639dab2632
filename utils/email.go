package utils

import (
	"context"
	"fmt"
	"html"
	"strings"

	"masivo-tech/models"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer delivers one message
type Mailer interface {
	Send(ctx context.Context, from, to, subject, htmlBody, textBody string) error
}

// PostmarkMailer sends through Postmark
type PostmarkMailer struct {
	client *postmark.Client
}

func NewPostmarkMailer(serverToken string) *PostmarkMailer {
	return &PostmarkMailer{client: postmark.NewClient(serverToken, "")}
}

func (m *PostmarkMailer) Send(_ context.Context, from, to, subject, htmlBody, textBody string) error {
	_, err := m.client.SendEmail(postmark.Email{
		From:     from,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	return err
}

// SendGridMailer sends through SendGrid
type SendGridMailer struct {
	client *sendgrid.Client
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) Send(ctx context.Context, from, to, subject, htmlBody, textBody string) error {
	msg := mail.NewSingleEmail(mail.NewEmail("Masivo Tech", from), subject, mail.NewEmail("", to), textBody, htmlBody)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer only logs messages. It is used when no provider is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, from, to, subject, _, textBody string) error {
	m.log.Info("email not sent, no provider configured",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(textBody)),
	)
	return nil
}

// EmailOptions selects and configures the provider
type EmailOptions struct {
	PostmarkToken  string
	SendGridKey    string
	Sender         string
	ContactAddress string
	BaseURL        string
}

// EmailService renders and sends the storefront's transactional emails
type EmailService struct {
	mailer  Mailer
	sender  string
	contact string
	baseURL string
}

// NewEmailService prefers Postmark, then SendGrid, then the log-only mailer
func NewEmailService(opts EmailOptions, log *zap.Logger) *EmailService {
	var mailer Mailer
	switch {
	case opts.PostmarkToken != "":
		mailer = NewPostmarkMailer(opts.PostmarkToken)
	case opts.SendGridKey != "":
		mailer = NewSendGridMailer(opts.SendGridKey)
	default:
		mailer = NewLogMailer(log)
	}
	return NewEmailServiceWith(mailer, opts)
}

// NewEmailServiceWith uses mailer directly
func NewEmailServiceWith(mailer Mailer, opts EmailOptions) *EmailService {
	return &EmailService{
		mailer:  mailer,
		sender:  opts.Sender,
		contact: opts.ContactAddress,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
	}
}

// SendEmail sends a message from the configured sender
func (es *EmailService) SendEmail(ctx context.Context, toEmail, subject, htmlContent, textContent string) error {
	if err := es.mailer.Send(ctx, es.sender, toEmail, subject, htmlContent, textContent); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendVerificationEmail sends an email verification link to the user
func (es *EmailService) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", es.baseURL, token)
	htmlContent := fmt.Sprintf(
		"<strong>Confirmá tu email haciendo click en el siguiente enlace:</strong> <a href=\"%s\">Verificar email</a>",
		link,
	)
	text := "Confirmá tu email en: " + link
	return es.SendEmail(ctx, toEmail, "Verificá tu email - Masivo Tech", htmlContent, text)
}

// SendOrderConfirmationEmail sends an order summary to the buyer
func (es *EmailService) SendOrderConfirmationEmail(ctx context.Context, order *models.Order) error {
	var rows, lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, "<li>%s x%d: %s</li>", html.EscapeString(item.ProductName), item.Quantity, models.FormatPrice(item.Cost()))
		fmt.Fprintf(&lines, "- %s x%d: %s\n", item.ProductName, item.Quantity, models.FormatPrice(item.Cost()))
	}

	subject := fmt.Sprintf("Confirmación de pedido #%s - Masivo Tech", order.ID.Hex())
	htmlContent := fmt.Sprintf(
		"<strong>Hola %s,</strong><br><br>¡Gracias por tu compra! Recibimos tu pedido <strong>#%s</strong>.<ul>%s</ul>Envío: <strong>%s</strong><br>Total: <strong>%s</strong><br><br>Te avisaremos cuando sea despachado.",
		html.EscapeString(order.FirstName),
		order.ID.Hex(),
		rows.String(),
		models.FormatPrice(order.ShippingCost),
		models.FormatPrice(order.Total),
	)
	text := fmt.Sprintf("Hola %s,\n\nRecibimos tu pedido #%s.\n%sEnvío: %s\nTotal: %s\n",
		order.FirstName, order.ID.Hex(), lines.String(),
		models.FormatPrice(order.ShippingCost), models.FormatPrice(order.Total))

	return es.SendEmail(ctx, order.Email, subject, htmlContent, text)
}

// ContactMessage is a message left through the contact form
type ContactMessage struct {
	Name    string `json:"nombre" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"asunto" validate:"required,max=200"`
	Message string `json:"mensaje" validate:"required,max=5000"`
}

// SendContactMessage forwards a contact form to the store inbox
func (es *EmailService) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	to := es.contact
	if to == "" {
		to = es.sender
	}
	subject := "Contacto: " + msg.Subject
	htmlContent := fmt.Sprintf("<p><strong>%s</strong> &lt;%s&gt; escribió:</p><p>%s</p>",
		html.EscapeString(msg.Name), html.EscapeString(msg.Email), html.EscapeString(msg.Message))
	text := fmt.Sprintf("%s <%s> escribió:\n\n%s\n", msg.Name, msg.Email, msg.Message)
	return es.SendEmail(ctx, to, subject, htmlContent, text)
}
