package notifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

const testToken = "123456:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi"

func gatedFixture() (entity.ReviewEntry, entity.MarketItem) {
	entry := entity.ReviewEntry{
		ID:            7,
		Kind:          value.ReviewKindVolatilityGate,
		PreviousPrice: lo.ToPtr(100.0),
		ProposedPrice: lo.ToPtr(140.0),
		ChangePercent: lo.ToPtr(40.0),
	}
	item := entity.MarketItem{
		ID:         42,
		Name:       "Pikachu <promo>",
		SetCode:    "sv1",
		CardNumber: "25",
		Currency:   "EUR",
		Liquidity:  value.LiquidityLow,
	}
	return entry, item
}

func TestGatedMessage(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	entry, item := gatedFixture()
	msg := gatedMessage(entry, item)

	rq.Contains(msg, "Pikachu &lt;promo&gt; (#42)")
	rq.Contains(msg, "100.00 EUR")
	rq.Contains(msg, "140.00 EUR")
	rq.Contains(msg, "40.00%")
	rq.Contains(msg, "low")
	rq.Contains(msg, "#7")

	entry.PreviousPrice = nil
	rq.Contains(gatedMessage(entry, item), "n/a EUR")
}

func TestNotifyGated(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		rq.True(strings.HasSuffix(r.URL.Path, "/sendMessage"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":99,"type":"private"}}}`)
	}))
	defer srv.Close()

	bot, err := NewTelegramBot(testToken, 99,
		telego.WithAPIServer(srv.URL),
		telego.WithHTTPClient(srv.Client()),
	)
	rq.NoError(err)

	entry, item := gatedFixture()
	rq.NoError(bot.NotifyGated(context.Background(), entry, item))
	rq.Contains(body, `"chat_id":99`)
	rq.Contains(body, `"parse_mode":"HTML"`)
}

func TestNewTelegramBotRejectsBadToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("not-a-token", 1)
	require.Error(t, err)
}
