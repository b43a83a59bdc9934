package handler

import (
	th "github.com/mymmrac/telego/telegohandler"

	"card_market/internal/transport/bot/middleware"
)

func (h *Handler) RegisterRoutes(bh *th.BotHandler, adminID int64) {
	messages := bh.Group(th.AnyMessage())
	messages.Use(middleware.AdminOnly(adminID))

	messages.HandleMessage(h.OnStart, th.CommandEqual("start"))
	messages.HandleMessage(h.OnStatus, th.CommandEqual("status"))
	messages.HandleMessage(h.OnRun, th.CommandEqual("run"))
	messages.HandleMessage(h.OnReviews, th.CommandEqual("reviews"))

	callbacks := bh.Group(th.AnyCallbackQuery())
	callbacks.Use(middleware.AdminOnly(adminID))

	callbacks.HandleCallbackQuery(h.OnReviewsPage, th.CallbackDataPrefix(reviewsPagePrefix))
	callbacks.HandleCallbackQuery(h.OnNoop, th.CallbackDataEqual(noopCallback))
}
