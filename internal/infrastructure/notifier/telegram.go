// Package notifier alerts operators about reviews that need a human decision.
package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"card_market/internal/domain/entity"
	"card_market/pkg/contextx"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64, opts ...telego.BotOption) (*TelegramBot, error) {
	opts = append([]telego.BotOption{telego.WithDiscardLogger()}, opts...)

	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telego.NewBot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// NotifyGated posts a held price move to the operator chat.
func (b *TelegramBot) NotifyGated(ctx context.Context, entry entity.ReviewEntry, item entity.MarketItem) error {
	msg := tu.Message(
		tu.ID(b.chatID),
		gatedMessage(entry, item),
	).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("bot.SendMessage: %w", err)
	}

	logger(ctx).Debug("gate alert sent",
		slog.Int64(logx.FieldMarketItemID, item.ID),
		slog.Int64(logx.FieldReviewID, entry.ID),
	)
	return nil
}

func gatedMessage(entry entity.ReviewEntry, item entity.MarketItem) string {
	return fmt.Sprintf(
		"<b>Price held for review</b>\n\n"+
			"<b>Item:</b> %s (#%d)\n"+
			"<b>Set:</b> %s %s\n"+
			"<b>Previous:</b> %s %s\n"+
			"<b>Proposed:</b> %s %s\n"+
			"<b>Change:</b> %s%%\n"+
			"<b>Liquidity:</b> %s\n"+
			"<b>Review:</b> #%d",
		html.EscapeString(item.Name), item.ID,
		html.EscapeString(item.SetCode), html.EscapeString(item.CardNumber),
		formatPrice(entry.PreviousPrice), item.Currency,
		formatPrice(entry.ProposedPrice), item.Currency,
		formatPrice(entry.ChangePercent),
		item.Liquidity,
		entry.ID,
	)
}

func formatPrice(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
