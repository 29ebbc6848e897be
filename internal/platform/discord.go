package platform

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"factcheck_gateway/internal/model"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const discordMaxMessageLength = 2000

// discordSession подмножество *discordgo.Session
type discordSession interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

type Discord struct {
	session discordSession
	logger  *zap.Logger

	mu     sync.RWMutex
	selfID string
}

func NewDiscord(token string, logger *zap.Logger) (*Discord, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return newDiscord(dg, logger), nil
}

func newDiscord(session discordSession, logger *zap.Logger) *Discord {
	return &Discord{session: session, logger: logger}
}

// Start регистрирует обработчики и открывает соединение с gateway.
func (d *Discord) Start(ctx context.Context, handle func(context.Context, model.InboundMessage)) error {
	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.setSelfID(r.User.ID)
		d.logger.Info("discord bot logged in", zap.String("username", r.User.Username))
	})
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		msg, ok := DiscordInbound(m, d.getSelfID())
		if !ok {
			return
		}
		handle(ctx, msg)
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) SendMessage(ctx context.Context, channelID string, reply model.Reply) error {
	text := reply.Text
	if runes := []rune(text); len(runes) > discordMaxMessageLength {
		text = string(runes[:discordMaxMessageLength])
	}

	if _, err := d.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		d.logger.Error("failed to send discord message", zap.Error(err), zap.String("channel_id", channelID))
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (d *Discord) setSelfID(id string) {
	d.mu.Lock()
	d.selfID = id
	d.mu.Unlock()
}

func (d *Discord) getSelfID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selfID
}

// DiscordInbound accepts direct messages and guild messages that mention the bot.
// Messages from bots are ignored.
func DiscordInbound(m *discordgo.MessageCreate, selfID string) (model.InboundMessage, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return model.InboundMessage{}, false
	}

	text := m.Content
	if m.GuildID != "" {
		if selfID == "" || !mentions(m.Mentions, selfID) {
			return model.InboundMessage{}, false
		}
		text = strings.NewReplacer("<@"+selfID+">", "", "<@!"+selfID+">", "").Replace(text)
	}

	return model.InboundMessage{
		Platform:  model.PlatformDiscord,
		UserID:    m.Author.ID,
		ChatID:    m.ChannelID,
		Text:      strings.TrimSpace(text),
		MessageID: m.ID,
		Profile:   model.UserProfile{Username: m.Author.Username},
		Metadata:  map[string]any{"guildId": m.GuildID},
	}, true
}

func mentions(users []*discordgo.User, id string) bool {
	for _, u := range users {
		if u != nil && u.ID == id {
			return true
		}
	}
	return false
}
