// internal/discord/client.go
package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/kronos"
	"github.com/lramos15/kronos-discord/internal/whmcs"
)

// Bot owns the Discord gateway connection and dispatches slash commands to
// the control-panel flow. All real work happens in the kronos and panel
// packages; this is a thin transport layer.
type Bot struct {
	session *discordgo.Session

	whmcs       *whmcs.Store
	backend     kronos.Backend
	staffRoleID string
	panelWindow time.Duration

	registered []*discordgo.ApplicationCommand
}

func New(token string, store *whmcs.Store, backend kronos.Backend, staffRoleID string, panelWindow time.Duration) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		session:     session,
		whmcs:       store,
		backend:     backend,
		staffRoleID: staffRoleID,
		panelWindow: panelWindow,
	}
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteraction)
	return bot, nil
}

// Start opens the gateway connection and registers the slash commands
// globally. Commands won't respond until registration finishes.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}

	for _, definition := range commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", definition)
		if err != nil {
			log.Errorf("Failed to register command '%s': %v", definition.Name, err)
			continue
		}
		b.registered = append(b.registered, created)
		log.Infof("Registered command '%s'", created.Name)
	}
	return nil
}

// Stop removes the registered commands and closes the gateway connection.
func (b *Bot) Stop() error {
	for _, command := range b.registered {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", command.ID); err != nil {
			log.Warnf("Failed to remove command '%s': %v", command.Name, err)
		}
	}
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, ready *discordgo.Ready) {
	log.Infof("Logged in as %s", ready.User.String())
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Component interactions are consumed by the per-session transports.
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case commandKronos:
		go b.handleKronos(s, i)
	case commandKronosInspect:
		go b.handleKronosInspect(s, i)
	}
}
