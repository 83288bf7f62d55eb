// Package composer validates and normalizes the three outbound message
// shapes (text, billing, interactive) into one canonical value. All
// validation happens here, before dispatch; the channel provider never sees
// an unvalidated message.
package composer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
)

type Kind string

const (
	KindText        Kind = "text"
	KindBilling     Kind = "billing"
	KindInteractive Kind = "interactive"
)

// Length caps for interactive messages. Inputs are truncated at the HTTP
// edge and re-validated here; truncation alone is not trusted.
const (
	MaxTitleLen       = 60
	MaxDescriptionLen = 1024
	MaxFooterLen      = 60
	MaxButtonTextLen  = 20
	MaxButtons        = 3
)

// Billing message types
const (
	BillingPaymentReminder = "payment_reminder"
	BillingInvoice         = "invoice"
	BillingOverdue         = "overdue"
	BillingConfirmation    = "confirmation"
)

var billingMessageTypes = []string{
	BillingPaymentReminder, BillingInvoice, BillingOverdue, BillingConfirmation,
}

var recognizedCurrencies = map[string]bool{
	"KES": true, "USD": true, "EUR": true, "GBP": true, "NGN": true,
	"TZS": true, "UGX": true, "ZAR": true, "INR": true, "GHS": true,
}

// Phone numbers are digits with country code, optional leading +.
var phoneRegex = regexp.MustCompile(`^[0-9]{10,15}$`)

type Button struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type BillingContent struct {
	CustomerName string
	Amount       float64
	Currency     string
	InvoiceID    string
	DueDate      *string
	MessageType  string
}

type InteractiveContent struct {
	Title       string
	Description string
	Footer      *string
	Buttons     []Button
}

// Message is the canonical outbound message: a tagged union over the three
// shapes. Exactly one of Body/Billing/Interactive is populated, per Kind.
type Message struct {
	Kind        Kind
	PhoneNumber string
	Body        string
	Billing     *BillingContent
	Interactive *InteractiveContent
}

// Tag classifies the message for DeliveryRecord.MessageType
// ("text", "billing_overdue", "interactive", ...).
func (m *Message) Tag() string {
	switch m.Kind {
	case KindBilling:
		return "billing_" + m.Billing.MessageType
	case KindInteractive:
		return "interactive"
	default:
		return "text"
	}
}

// RenderText produces the human-readable body persisted in the
// DeliveryRecord and handed to the channel provider.
func (m *Message) RenderText() string {
	switch m.Kind {
	case KindBilling:
		return m.Billing.render()
	case KindInteractive:
		return m.Interactive.render()
	default:
		return m.Body
	}
}

func (b *BillingContent) render() string {
	amount := fmt.Sprintf("%s %.2f", b.Currency, b.Amount)

	var sb strings.Builder
	switch b.MessageType {
	case BillingOverdue:
		fmt.Fprintf(&sb, "Hello %s, invoice %s of %s is overdue.", b.CustomerName, b.InvoiceID, amount)
	case BillingInvoice:
		fmt.Fprintf(&sb, "Hello %s, invoice %s has been issued for %s.", b.CustomerName, b.InvoiceID, amount)
	case BillingConfirmation:
		fmt.Fprintf(&sb, "Hello %s, your payment of %s for invoice %s has been received. Thank you.", b.CustomerName, amount, b.InvoiceID)
	default: // payment_reminder
		fmt.Fprintf(&sb, "Hello %s, this is a reminder that invoice %s of %s is due.", b.CustomerName, b.InvoiceID, amount)
	}

	if b.DueDate != nil && *b.DueDate != "" && b.MessageType != BillingConfirmation {
		fmt.Fprintf(&sb, " Due date: %s.", *b.DueDate)
	}
	return sb.String()
}

func (i *InteractiveContent) render() string {
	var sb strings.Builder
	sb.WriteString(i.Title)
	sb.WriteString("\n\n")
	sb.WriteString(i.Description)
	for idx, btn := range i.Buttons {
		fmt.Fprintf(&sb, "\n%d. %s", idx+1, btn.Text)
	}
	if i.Footer != nil && *i.Footer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(*i.Footer)
	}
	return sb.String()
}

type TextInput struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

type BillingInput struct {
	PhoneNumber  string  `json:"phone_number"`
	CustomerName string  `json:"customer_name"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	InvoiceID    string  `json:"invoice_id"`
	DueDate      *string `json:"due_date,omitempty"`
	MessageType  string  `json:"message_type"`
}

type InteractiveInput struct {
	PhoneNumber string   `json:"phone_number"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Footer      *string  `json:"footer,omitempty"`
	Buttons     []Button `json:"buttons"`
}

// Truncate clips free-text fields to their caps. Called at the HTTP edge;
// composition re-validates the caps regardless. Caps count runes, never
// bytes, so clipping cannot split a multibyte character.
func (in *InteractiveInput) Truncate() {
	in.Title = clipRunes(in.Title, MaxTitleLen)
	in.Description = clipRunes(in.Description, MaxDescriptionLen)
	if in.Footer != nil {
		f := clipRunes(*in.Footer, MaxFooterLen)
		in.Footer = &f
	}
}

func clipRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// NormalizePhone strips formatting characters and the leading + from a
// phone number, returning the bare digits-with-country-code form.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s)
	return s
}

func validatePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.MissingRequired("phone_number")
	}
	normalized := NormalizePhone(raw)
	if !phoneRegex.MatchString(normalized) {
		return "", apperrors.Validation("phone_number", "must be digits with country code")
	}
	return normalized, nil
}

// Text validates a plain text message.
func Text(in TextInput) (*Message, error) {
	phone, err := validatePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperrors.MissingRequired("message")
	}
	return &Message{
		Kind:        KindText,
		PhoneNumber: phone,
		Body:        in.Message,
	}, nil
}

// Billing validates a structured billing notice.
func Billing(in BillingInput) (*Message, error) {
	phone, err := validatePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, apperrors.MissingRequired("customer_name")
	}
	if in.Amount <= 0 {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if !recognizedCurrencies[currency] {
		return nil, apperrors.Validation("currency", "unrecognized currency code")
	}
	if strings.TrimSpace(in.InvoiceID) == "" {
		return nil, apperrors.MissingRequired("invoice_id")
	}
	messageType := in.MessageType
	if messageType == "" {
		messageType = BillingPaymentReminder
	}
	if !isValidBillingType(messageType) {
		return nil, apperrors.Validation("message_type", "must be one of payment_reminder, invoice, overdue, confirmation")
	}
	return &Message{
		Kind:        KindBilling,
		PhoneNumber: phone,
		Billing: &BillingContent{
			CustomerName: in.CustomerName,
			Amount:       in.Amount,
			Currency:     currency,
			InvoiceID:    in.InvoiceID,
			DueDate:      in.DueDate,
			MessageType:  messageType,
		},
	}, nil
}

// Interactive validates a button prompt message.
func Interactive(in InteractiveInput) (*Message, error) {
	phone, err := validatePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.MissingRequired("title")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLen {
		return nil, apperrors.Validation("title", fmt.Sprintf("must be at most %d characters", MaxTitleLen))
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperrors.MissingRequired("description")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLen {
		return nil, apperrors.Validation("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLen))
	}
	if in.Footer != nil && utf8.RuneCountInString(*in.Footer) > MaxFooterLen {
		return nil, apperrors.Validation("footer", fmt.Sprintf("must be at most %d characters", MaxFooterLen))
	}
	if len(in.Buttons) == 0 {
		return nil, apperrors.Validation("buttons", "at least one button is required")
	}
	if len(in.Buttons) > MaxButtons {
		return nil, apperrors.Validation("buttons", fmt.Sprintf("at most %d buttons are allowed", MaxButtons))
	}

	buttons := make([]Button, 0, len(in.Buttons))
	seen := make(map[string]bool, len(in.Buttons))
	for idx, btn := range in.Buttons {
		text := strings.TrimSpace(btn.Text)
		if text == "" {
			return nil, apperrors.Validation("buttons", fmt.Sprintf("button %d text must not be empty", idx+1))
		}
		if utf8.RuneCountInString(text) > MaxButtonTextLen {
			return nil, apperrors.Validation("buttons", fmt.Sprintf("button %d text must be at most %d characters", idx+1, MaxButtonTextLen))
		}
		id := strings.TrimSpace(btn.ID)
		if id == "" {
			id = fmt.Sprintf("btn_%d", idx+1)
		}
		if seen[id] {
			return nil, apperrors.Validation("buttons", fmt.Sprintf("duplicate button id %q", id))
		}
		seen[id] = true
		buttons = append(buttons, Button{ID: id, Text: text})
	}

	return &Message{
		Kind:        KindInteractive,
		PhoneNumber: phone,
		Interactive: &InteractiveContent{
			Title:       in.Title,
			Description: in.Description,
			Footer:      in.Footer,
			Buttons:     buttons,
		},
	}, nil
}

func isValidBillingType(t string) bool {
	for _, v := range billingMessageTypes {
		if t == v {
			return true
		}
	}
	return false
}
