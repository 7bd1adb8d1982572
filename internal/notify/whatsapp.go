package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const whatsAppAPIURL = "https://graph.facebook.com/v18.0"

// WhatsAppSender delivers text messages through the WhatsApp Cloud API.
// Contacts are phone numbers; "+" and spaces are stripped before sending.
type WhatsAppSender struct {
	baseURL       string
	token         string
	phoneNumberID string
	httpClient    *http.Client
}

// NewWhatsAppSender creates a Cloud API sender for the given business number
func NewWhatsAppSender(token, phoneNumberID string) *WhatsAppSender {
	return &WhatsAppSender{
		baseURL:       whatsAppAPIURL,
		token:         token,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

type whatsAppText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send posts a text message to the contact. Transient failures surface as
// errors so the Dispatcher can retry.
func (s *WhatsAppSender) Send(ctx context.Context, contact, message string) error {
	to := strings.NewReplacer("+", "", " ", "").Replace(contact)

	body, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{Body: message},
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr whatsAppError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("whatsapp api status %d", resp.StatusCode)
	}
	return nil
}
