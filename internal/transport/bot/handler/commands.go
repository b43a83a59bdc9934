package handler

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
	"card_market/pkg/logx"
)

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, startMessage, nil)
}

func (h *Handler) OnStatus(ctx *th.Context, msg telego.Message) error {
	stage, _, err := parseStageArg(msg.Text)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(stageUsage, "status"), nil)
	}

	summary, err := h.summaries.Latest(ctx, stage)
	switch {
	case domain.HasCode(err, errcodes.NoRunSummary):
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(noSummaryMessage, stage), nil)
	case err != nil:
		logger(ctx).Error("summaries.Latest", logx.Error(err))
		return h.sendHTML(ctx, msg.Chat.ID, failedMessage, nil)
	}

	return h.sendHTML(ctx, msg.Chat.ID, summaryText(summary), nil)
}

func (h *Handler) OnRun(ctx *th.Context, msg telego.Message) error {
	stage, category, err := parseStageArg(msg.Text)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(stageUsage, "run"), nil)
	}

	taskID, err := h.runs.Enqueue(ctx, stage, entity.RunOptions{Category: category})
	switch {
	case domain.HasCode(err, errcodes.RunInProgress):
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(runBusyMessage, stage), nil)
	case err != nil:
		logger(ctx).Error("runs.Enqueue", logx.Error(err))
		return h.sendHTML(ctx, msg.Chat.ID, failedMessage, nil)
	}

	return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(runQueuedMessage, stage, taskID), nil)
}

func (h *Handler) OnReviews(ctx *th.Context, msg telego.Message) error {
	text, keyboard, err := h.renderReviews(ctx, 1)
	if err != nil {
		logger(ctx).Error("renderReviews", logx.Error(err))
		return h.sendHTML(ctx, msg.Chat.ID, failedMessage, nil)
	}
	return h.sendHTML(ctx, msg.Chat.ID, text, keyboard)
}

func (h *Handler) renderReviews(ctx context.Context, page int) (string, *telego.InlineKeyboardMarkup, error) {
	entries, err := h.reviews.List(ctx, entity.ReviewFilter{
		Status: value.ReviewStatusPending,
		Limit:  reviewsFetchLimit,
	})
	if err != nil {
		return "", nil, fmt.Errorf("reviews.List: %w", err)
	}
	if len(entries) == 0 {
		return noReviewsMessage, nil, nil
	}

	shown, page := reviewsPage(entries, page)
	pages := totalPages(len(entries))

	return reviewsText(shown, page, pages), paginationKeyboard(page, pages), nil
}

func paginationKeyboard(page, pages int) *telego.InlineKeyboardMarkup {
	var buttons []telego.InlineKeyboardButton

	if page > 1 {
		buttons = append(buttons, tu.InlineKeyboardButton("⬅️").
			WithCallbackData(fmt.Sprintf(reviewsPageCallback, page-1)))
	}

	buttons = append(buttons, tu.InlineKeyboardButton(fmt.Sprintf("%d / %d", page, pages)).
		WithCallbackData(noopCallback))

	if page < pages {
		buttons = append(buttons, tu.InlineKeyboardButton("➡️").
			WithCallbackData(fmt.Sprintf(reviewsPageCallback, page+1)))
	}

	return tu.InlineKeyboard(tu.InlineKeyboardRow(buttons...))
}

func (h *Handler) sendHTML(ctx *th.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) error {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
	if keyboard != nil {
		params = params.WithReplyMarkup(keyboard)
	}

	_, err := ctx.Bot().SendMessage(ctx, params)
	return err
}
