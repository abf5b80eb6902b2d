package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/hyeseon-dev/startrade/startrade"
	"github.com/hyeseon-dev/startrade/startrade/handlers"
	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/notify"
	"github.com/hyeseon-dev/startrade/startrade/trade"
)

const tradesPerPage = 5

type TradeHandler struct {
	bot *startrade.Bot
}

func NewTradeHandler(b *startrade.Bot) *TradeHandler {
	return &TradeHandler{bot: b}
}

func (h *TradeHandler) Register(r handler.Router) {
	r.Command("/trade", handlers.WrapWithLogging("trade", h.HandleTrade))
	r.Command("/trades", handlers.WrapWithLogging("trades", h.HandleTrades))

	r.Component("/trade/accept/", handlers.WrapComponentWithLogging("trade-accept", h.responseHandler(true)))
	r.Component("/trade/decline/", handlers.WrapComponentWithLogging("trade-decline", h.responseHandler(false)))
}

// HandleTrade is the on-demand initiation path: it appends a request row and
// nudges the scanner, which owns validation and notification from there.
func (h *TradeHandler) HandleTrade(event *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data := event.SlashCommandInteractionData()
	yourCard := strings.TrimSpace(data.String("your_card"))
	targetUser := data.User("player")
	theirCard := strings.TrimSpace(data.String("their_card"))

	actorID := event.User().ID.String()
	targetID := targetUser.ID.String()

	if actorID == targetID {
		return ephemeral(event, "❌ You cannot trade with yourself.")
	}

	actor, err := h.bot.Directory.ByID(ctx, actorID)
	if err != nil {
		return ephemeral(event, "❌ You are not on the league roster.")
	}
	target, err := h.bot.Directory.ByID(ctx, targetID)
	if err != nil {
		return ephemeral(event, fmt.Sprintf("❌ %s is not on the league roster.", targetUser.Username))
	}

	row := ledger.Row{actor.Name, yourCard, target.Name, theirCard}
	if err := h.bot.Gateway.AppendRows(ctx, h.bot.Cfg.Sheets.Requests, []ledger.Row{row}); err != nil {
		return ephemeral(event, "❌ Failed to submit the trade request.")
	}

	h.bot.Engine.RequestScan(context.Background())

	embed := discord.NewEmbedBuilder().
		SetTitle("🔄 Trade Request Submitted").
		SetDescription(fmt.Sprintf("Offering your **%s** for %s's **%s**. Both of you will get a DM once the request is checked.",
			yourCard, target.Name, theirCard)).
		SetColor(notify.AccentNeutral).
		Build()

	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	})
}

// HandleTrades lists the in-flight offers from the registry.
func (h *TradeHandler) HandleTrades(event *handler.CommandEvent) error {
	offers := h.bot.Engine.Registry().Live()
	if len(offers) == 0 {
		return ephemeral(event, "No trades are waiting on a response.")
	}

	totalPages := (len(offers) + tradesPerPage - 1) / tradesPerPage

	return h.bot.Paginator.Create(event.Respond, paginator.Pages{
		ID:      event.ID().String(),
		Creator: event.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			startIdx := page * tradesPerPage
			endIdx := min(startIdx+tradesPerPage, len(offers))

			var description strings.Builder
			for _, offer := range offers[startIdx:endIdx] {
				a := offer.Participants[0]
				b := offer.Participants[1]
				description.WriteString(fmt.Sprintf("`%s`\n%s: **%s** (%s) ↔ %s: **%s** (%s)\n\n",
					offer.TradeID,
					a.Name, a.Card, a.Response,
					b.Name, b.Card, b.Response))
			}

			embed.
				SetTitle("📥 Open Trades").
				SetDescription(description.String()).
				SetColor(notify.AccentNeutral).
				SetFooter(fmt.Sprintf("Page %d/%d • %d open", page+1, totalPages, len(offers)), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}

func (h *TradeHandler) responseHandler(accept bool) handler.ComponentHandler {
	return func(event *handler.ComponentEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tradeID := trade.TradeIDFromCustomID(event.Data.CustomID())
		if tradeID == "" {
			return ephemeralComponent(event, "❌ Invalid trade interaction.")
		}

		action := trade.Action{
			TradeID: tradeID,
			ActorID: event.User().ID.String(),
			Ref:     notify.Ref(fmt.Sprintf("%s/%s", event.ChannelID(), event.Message.ID)),
			Accept:  accept,
		}

		result, err := h.bot.Engine.HandleResponse(ctx, action)
		if err != nil && result.Kind == "" {
			return ephemeralComponent(event, "❌ Something went wrong handling your response. Please try again.")
		}

		return ephemeralComponent(event, renderResult(result))
	}
}

func renderResult(result trade.Result) string {
	switch result.Kind {
	case trade.ResultStale:
		return "This trade is no longer valid."
	case trade.ResultMismatch:
		return "❌ This message does not belong to that trade."
	case trade.ResultDuplicate:
		return "You have already responded to this trade."
	case trade.ResultUnauthorized:
		return "❌ This trade offer was not addressed to you."
	case trade.ResultAwaitingOther:
		return "✅ Accepted. Waiting for the other player to respond."
	case trade.ResultDeclined:
		return "❌ Trade declined. The other player has been told."
	case trade.ResultCompleted:
		return "✅ Trade completed! Both pools have been updated."
	case trade.ResultInvalid:
		return "⚠️ Both sides accepted, but the trade no longer checks out:\n" + trade.FormatReasons(result.Reasons)
	case trade.ResultSettlementFailed:
		return "⚠️ Settlement failed; an operator has been notified. The trade stays open."
	default:
		return "Response recorded."
	}
}

func ephemeral(event *handler.CommandEvent, content string) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: content,
		Flags:   discord.MessageFlagEphemeral,
	})
}

func ephemeralComponent(event *handler.ComponentEvent, content string) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: content,
		Flags:   discord.MessageFlagEphemeral,
	})
}
