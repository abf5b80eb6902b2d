package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	TradeCommand,
	TradesCommand,
}

var TradeCommand = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Propose a card trade with another player",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "your_card",
			Description: "The card you offer from your pool",
			Required:    true,
		},
		discord.ApplicationCommandOptionUser{
			Name:        "player",
			Description: "The player you want to trade with",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "their_card",
			Description: "The card you want from their pool",
			Required:    true,
		},
	},
}

var TradesCommand = discord.SlashCommandCreate{
	Name:        "trades",
	Description: "List trades that are still waiting on a response",
}
