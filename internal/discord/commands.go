// internal/discord/commands.go
package discord

import (
	"context"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/panel"
)

const (
	commandKronos        = "kronos"
	commandKronosInspect = "kronosinspect"
)

const customerNotFoundMessage = "Kronos customer not found! If you believe this to be incorrect, please contact an admin!"

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandKronos,
			Description: "Lists out and allows for management of the servers on your Kronos dashboard!",
		},
		{
			Name:        commandKronosInspect,
			Description: "Lists out and allows for management of another user's Kronos servers (staff only)!",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to inspect",
					Required:    true,
				},
			},
		},
	}
}

// handleKronos opens a control panel for the invoking user's own services.
func (b *Bot) handleKronos(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferEphemeral(s, i) {
		return
	}
	b.openPanel(s, i, interactionUser(i).String())
}

// handleKronosInspect opens a control panel for another user's services.
// Gated on the configured staff role.
func (b *Bot) handleKronosInspect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferEphemeral(s, i) {
		return
	}
	if i.GuildID == "" || i.Member == nil {
		editReply(s, i, "This command can only be used in a server (guild).")
		return
	}
	if b.staffRoleID == "" || !slices.Contains(i.Member.Roles, b.staffRoleID) {
		editReply(s, i, "You do not have permission to use this command!")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		editReply(s, i, "User option not found.")
		return
	}
	target := options[0].UserValue(s)
	if target == nil {
		editReply(s, i, "User option not found.")
		return
	}
	b.openPanel(s, i, target.String())
}

// openPanel resolves the customer's services and runs a control session over
// them, using the deferred interaction reply as the panel message.
func (b *Bot) openPanel(s *discordgo.Session, i *discordgo.InteractionCreate, discordTag string) {
	ctx := context.Background()

	whmcsID, ok := b.whmcs.ClientID(ctx, discordTag)
	if !ok {
		editReply(s, i, customerNotFoundMessage)
		return
	}

	userID, found, err := b.backend.UserID(ctx, whmcsID)
	if err != nil {
		log.Error("Failed to resolve kronos user", "discord_tag", discordTag, "error", err)
	}
	if !found {
		editReply(s, i, customerNotFoundMessage)
		return
	}

	services := b.backend.Services(ctx, userID)
	if len(services) == 0 {
		editReply(s, i, customerNotFoundMessage)
		return
	}

	panelServices := make([]panel.Service, len(services))
	for idx, svc := range services {
		panelServices[idx] = svc
	}

	transport := newInteractionTransport(s, i.Interaction)
	session, err := panel.NewSession(panelServices, transport, b.panelWindow)
	if err != nil {
		editReply(s, i, customerNotFoundMessage)
		return
	}
	if err := session.Run(ctx); err != nil {
		log.Error("Control session failed", "discord_tag", discordTag, "error", err)
	}
}

// interactionUser returns the invoking user regardless of whether the
// interaction came from a guild or a DM.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// deferEphemeral acknowledges the interaction with a deferred ephemeral
// reply; the panel work afterwards can be slow.
func deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Error("Failed to defer interaction reply", "error", err)
		return false
	}
	return true
}

func editReply(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &message})
	if err != nil {
		log.Error("Failed to edit interaction reply", "error", err)
	}
}
