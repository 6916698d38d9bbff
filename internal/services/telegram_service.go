package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// TelegramService notifies the shop admin chat about new orders.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// OrderItemNotification is one line of an order notification.
type OrderItemNotification struct {
	Name     string
	Quantity int
	Price    float64
}

// OrderNotification contains order data for the admin notification.
type OrderNotification struct {
	OrderNumber string
	Items       []OrderItemNotification
	TotalAmount float64
	Currency    string
	UserName    string
	UserEmail   string
	Status      string
}

// NotifyNewOrder formats and sends a new-order message to the admin chat.
func (s *TelegramService) NotifyNewOrder(n OrderNotification) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Nueva orden %s</b>\n", n.OrderNumber)
	fmt.Fprintf(&b, "Cliente: %s (%s)\n", n.UserName, n.UserEmail)
	fmt.Fprintf(&b, "Estado: %s\n\n", n.Status)
	for _, item := range n.Items {
		fmt.Fprintf(&b, "• %s x%d: %.0f %s\n", item.Name, item.Quantity, item.Price, n.Currency)
	}
	fmt.Fprintf(&b, "\n<b>Total: %.0f %s</b>", n.TotalAmount, n.Currency)

	return s.SendMessage(s.adminChatID, b.String())
}
