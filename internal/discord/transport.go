// internal/discord/transport.go
package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/kronos"
	"github.com/lramos15/kronos-discord/internal/panel"
)

const selectorCustomID = "appboxSelector"
const embedColor = 0x0099FF

// eventQueueSize bounds how many clicks can wait while the session works
// through earlier ones. Discord rate limits keep real backlogs far smaller.
const eventQueueSize = 16

// interactionTransport implements panel.Transport over one ephemeral
// interaction reply. Each component click must be answered with its own
// interaction response, so every event carries its originating interaction
// and Ack answers exactly that one.
type interactionTransport struct {
	session *discordgo.Session

	mu        sync.Mutex
	current   *discordgo.Interaction // interaction whose response is the panel message
	messageID string
	events    chan panel.Event
}

func newInteractionTransport(session *discordgo.Session, interaction *discordgo.Interaction) *interactionTransport {
	return &interactionTransport{
		session: session,
		current: interaction,
		events:  make(chan panel.Event, eventQueueSize),
	}
}

// Ack answers the component interaction that produced the event with the
// given view; that interaction then owns the panel message for later edits.
// Events without an originating interaction fall back to an in-place edit.
func (t *interactionTransport) Ack(ctx context.Context, event panel.Event, view panel.View) error {
	origin, _ := event.Origin.(*discordgo.Interaction)
	if origin == nil {
		return t.Render(ctx, view)
	}

	content, embed, components := buildMessage(view)
	err := t.session.InteractionRespond(origin, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.current = origin
	t.mu.Unlock()
	return nil
}

// Render edits the panel message in place.
func (t *interactionTransport) Render(_ context.Context, view panel.View) error {
	content, embed, components := buildMessage(view)

	t.mu.Lock()
	current := t.current
	t.mu.Unlock()

	embeds := []*discordgo.MessageEmbed{embed}
	message, err := t.session.InteractionResponseEdit(current, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.messageID == "" && message != nil {
		t.messageID = message.ID
	}
	t.mu.Unlock()
	return nil
}

// Events subscribes to component interactions on the panel message and
// relays them, in arrival order, until ctx is done.
func (t *interactionTransport) Events(ctx context.Context) <-chan panel.Event {
	remove := t.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionMessageComponent {
			return
		}

		t.mu.Lock()
		mine := t.messageID != "" && i.Message != nil && i.Message.ID == t.messageID
		t.mu.Unlock()
		if !mine {
			return
		}

		data := i.MessageComponentData()
		event := panel.Event{Kind: panel.EventButton, Value: data.CustomID, Origin: i.Interaction}
		if data.CustomID == selectorCustomID {
			if len(data.Values) == 0 {
				return
			}
			event = panel.Event{Kind: panel.EventSelect, Value: data.Values[0], Origin: i.Interaction}
		}

		// Handlers run on their own goroutine, so waiting here blocks only
		// this click, never the gateway.
		select {
		case t.events <- event:
		case <-ctx.Done():
			log.Debug("Discarding panel event, session over", "message_id", t.messageID)
		}
	})

	go func() {
		<-ctx.Done()
		remove()
	}()
	return t.events
}

// buildMessage translates a panel view into the Discord message parts.
func buildMessage(view panel.View) (content string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	if view.Processing {
		return "", &discordgo.MessageEmbed{Title: view.Title}, []discordgo.MessageComponent{}
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(view.Fields))
	for _, field := range view.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}

	embed = &discordgo.MessageEmbed{
		Color:       embedColor,
		Author:      &discordgo.MessageEmbedAuthor{Name: "Kronos Bot"},
		Title:       view.Title,
		Description: view.Description,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Result fetched from Kronos"},
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	buttons := make([]discordgo.MessageComponent, 0, len(view.Buttons))
	for _, button := range view.Buttons {
		buttons = append(buttons, discordgo.Button{
			CustomID: string(button.Operation),
			Label:    button.Label,
			Style:    buttonStyle(button.Operation),
			Emoji:    buttonEmoji(button.Operation),
			Disabled: button.Disabled,
		})
	}
	components = []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}

	if len(view.Selector) > 0 {
		options := make([]discordgo.SelectMenuOption, 0, len(view.Selector))
		for _, option := range view.Selector {
			options = append(options, discordgo.SelectMenuOption{
				Label:       option.Label,
				Description: option.Description,
				Value:       option.Value,
			})
		}
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    selectorCustomID,
					Placeholder: "Choose which appbox to view!",
					Options:     options,
				},
			},
		})
	}

	return view.Notice, embed, components
}

func buttonStyle(op kronos.Operation) discordgo.ButtonStyle {
	switch op {
	case kronos.OperationStart:
		return discordgo.SuccessButton
	case kronos.OperationStop:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func buttonEmoji(op kronos.Operation) *discordgo.ComponentEmoji {
	switch op {
	case kronos.OperationStart:
		return &discordgo.ComponentEmoji{Name: "▶️"}
	case kronos.OperationStop:
		return &discordgo.ComponentEmoji{Name: "⏹️"}
	default:
		return &discordgo.ComponentEmoji{Name: "🔄"}
	}
}
