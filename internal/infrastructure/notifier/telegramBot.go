// Package notifier доставка событий жизненного цикла сделок во внешние каналы.
package notifier

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"trip_sentinel/internal/domain/entity"
)

type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (b *TelegramBot) SendEvent(ctx context.Context, event entity.DealEvent) error {
	msg := tu.Message(
		tu.ID(b.chatID),
		b.formatEvent(event),
	).WithParseMode(telego.ModeHTML)

	_, err := b.bot.SendMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func (b *TelegramBot) formatEvent(event entity.DealEvent) string {
	deal := event.Deal

	switch event.Status {
	case entity.DealStatusBooked:
		return fmt.Sprintf(
			"✅ <b>BOOKED!</b>\n\n"+
				"✈️ <b>Destination:</b> %s, %s\n"+
				"💰 <b>Price:</b> $%.2f\n"+
				"📊 <b>Market:</b> $%.2f\n"+
				"📉 <b>Saved:</b> $%.2f",
			deal.Destination,
			deal.Country,
			cents(deal.Price),
			cents(deal.MarketPrice),
			cents(deal.Savings()),
		)
	case entity.DealStatusEligible:
		return fmt.Sprintf(
			"🔥 <b>DEAL FOUND!</b>\n\n"+
				"✈️ <b>Destination:</b> %s, %s\n"+
				"💰 <b>Price:</b> $%.2f\n"+
				"📊 <b>Market:</b> $%.2f\n"+
				"📉 <b>Discount:</b> %.1f%%",
			deal.Destination,
			deal.Country,
			cents(deal.Price),
			cents(deal.MarketPrice),
			deal.DiscountPercent(),
		)
	case entity.DealStatusFailed:
		return fmt.Sprintf(
			"❌ <b>Booking failed</b>\n\n"+
				"✈️ %s, %s\n"+
				"📝 %s",
			deal.Destination,
			deal.Country,
			event.Detail,
		)
	default:
		return fmt.Sprintf(
			"ℹ️ <b>%s</b>: %s, %s",
			event.Status.String(),
			deal.Destination,
			deal.Country,
		)
	}
}

// SendText отправляет простое текстовое сообщение.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	msg := tu.Message(tu.ID(b.chatID), text)

	_, err := b.bot.SendMessage(ctx, msg)
	return err
}

func cents(amount int64) float64 {
	return float64(amount) / 100
}
