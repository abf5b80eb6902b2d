package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// DiscordNotifier delivers trade notifications as DM embeds with accept and
// decline buttons. Refs encode "channelID/messageID" so Update can find the
// original message after a restart.
type DiscordNotifier struct {
	client bot.Client
}

func NewDiscordNotifier(client bot.Client) *DiscordNotifier {
	if client == nil {
		panic("discord client cannot be nil")
	}
	return &DiscordNotifier{client: client}
}

func (n *DiscordNotifier) Notify(_ context.Context, userID string, p Payload) (Ref, error) {
	id, err := snowflake.Parse(userID)
	if err != nil {
		return "", fmt.Errorf("invalid discord user id %q: %w", userID, err)
	}

	dmChannel, err := n.client.Rest().CreateDMChannel(id)
	if err != nil {
		return "", fmt.Errorf("failed to open DM with %s: %w", userID, err)
	}

	msg, err := n.client.Rest().CreateMessage(dmChannel.ID(), discord.MessageCreate{
		Embeds:     []discord.Embed{buildEmbed(p)},
		Components: buildComponents(p),
	})
	if err != nil {
		return "", fmt.Errorf("failed to DM %s: %w", userID, err)
	}

	return Ref(fmt.Sprintf("%s/%s", dmChannel.ID(), msg.ID)), nil
}

func (n *DiscordNotifier) Update(_ context.Context, ref Ref, p Payload) error {
	channelID, messageID, err := splitRef(ref)
	if err != nil {
		return err
	}

	embeds := []discord.Embed{buildEmbed(p)}
	components := buildComponents(p)
	_, err = n.client.Rest().UpdateMessage(channelID, messageID, discord.MessageUpdate{
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", ref, err)
	}
	return nil
}

func splitRef(ref Ref) (snowflake.ID, snowflake.ID, error) {
	parts := strings.Split(string(ref), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed notification ref %q", ref)
	}
	channelID, err := snowflake.Parse(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed notification ref %q: %w", ref, err)
	}
	messageID, err := snowflake.Parse(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed notification ref %q: %w", ref, err)
	}
	return channelID, messageID, nil
}

func buildEmbed(p Payload) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(p.Title).
		SetDescription(p.Body).
		SetColor(p.Accent)

	if p.TradeID != "" {
		builder.AddField("Trade ID", p.TradeID, false)
	}
	return builder.Build()
}

func buildComponents(p Payload) []discord.ContainerComponent {
	if len(p.Buttons) == 0 {
		return []discord.ContainerComponent{}
	}

	buttons := make([]discord.InteractiveComponent, 0, len(p.Buttons))
	for _, b := range p.Buttons {
		if b.Danger {
			buttons = append(buttons, discord.NewDangerButton(b.Label, b.CustomID))
		} else {
			buttons = append(buttons, discord.NewSuccessButton(b.Label, b.CustomID))
		}
	}
	return []discord.ContainerComponent{discord.NewActionRow(buttons...)}
}
