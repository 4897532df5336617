package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/crownside/storefront/internal/domain"
)

// Notifier sends order confirmation messages to customers.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order domain.Order) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifierDeps configures the SendGrid-backed notifier.
type SendGridNotifierDeps struct {
	APIKey      string
	FromAddress string
	FromName    string
	Client      sendClient
	Logger      func(context.Context, string, map[string]any)
}

// SendGridNotifier delivers order confirmations through SendGrid.
type SendGridNotifier struct {
	client      sendClient
	fromAddress string
	fromName    string
	logger      func(context.Context, string, map[string]any)
}

var _ Notifier = (*SendGridNotifier)(nil)

// NewSendGridNotifier validates dependencies and builds a SendGridNotifier.
func NewSendGridNotifier(deps SendGridNotifierDeps) (*SendGridNotifier, error) {
	if strings.TrimSpace(deps.FromAddress) == "" {
		return nil, errors.New("sendgrid notifier: from address is required")
	}

	client := deps.Client
	if client == nil {
		if strings.TrimSpace(deps.APIKey) == "" {
			return nil, errors.New("sendgrid notifier: api key is required")
		}
		client = sendgrid.NewSendClient(deps.APIKey)
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	fromName := strings.TrimSpace(deps.FromName)
	if fromName == "" {
		fromName = "Crownside"
	}

	return &SendGridNotifier{
		client:      client,
		fromAddress: strings.TrimSpace(deps.FromAddress),
		fromName:    fromName,
		logger:      logger,
	}, nil
}

// SendOrderConfirmation emails the customer a summary of the placed order.
func (n *SendGridNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order) error {
	to := strings.TrimSpace(order.Customer.Email)
	if to == "" {
		return errors.New("sendgrid notifier: customer email is empty")
	}

	subject := fmt.Sprintf("Order %s confirmed", order.ID)
	body := renderOrderBody(order)

	message := mail.NewSingleEmail(
		mail.NewEmail(n.fromName, n.fromAddress),
		subject,
		mail.NewEmail(order.Customer.Name, to),
		body,
		fmt.Sprintf("<pre>%s</pre>", body),
	)

	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid notifier: send: %w", err)
	}
	if response.StatusCode >= 400 {
		n.logger(ctx, "notifications.send_failed", map[string]any{
			"order_id": order.ID,
			"status":   response.StatusCode,
		})
		return fmt.Errorf("sendgrid notifier: send failed with status %d", response.StatusCode)
	}

	n.logger(ctx, "notifications.sent", map[string]any{
		"order_id": order.ID,
		"status":   response.StatusCode,
	})
	return nil
}

func renderOrderBody(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your purchase, %s!\n\n", order.Customer.Name)
	fmt.Fprintf(&b, "Order %s placed at %s\n\n", order.ID, order.PlacedAt.Format("2006-01-02 15:04 MST"))
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "  %dx %s - %s\n", line.Quantity, line.Name, formatMinorUnits(line.Subtotal(), order.Currency))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatMinorUnits(order.Total, order.Currency))
	if hasPresaleLine(order.Lines) {
		b.WriteString("\nYour order includes presale items; shipping estimates will follow separately.\n")
	}
	return b.String()
}

func hasPresaleLine(lines []domain.CartLine) bool {
	for _, line := range lines {
		if line.Presale {
			return true
		}
	}
	return false
}

func formatMinorUnits(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}
