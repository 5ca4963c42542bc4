package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tweetrelay/internal/state"
)

// BotClient is the slice of the Bot API the controller needs.
type BotClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Controller reacts to administrative commands. Dispatch is stateless: each
// command performs a single read-modify-persist against the state manager
// and replies synchronously. Validation failures leave state unchanged.
type Controller struct {
	bot           BotClient
	state         *state.Manager
	admins        map[int64]struct{}
	updateTimeout int
	logger        *zap.Logger
}

// NewController constructs a Controller. An empty admins list leaves the
// command surface open to any chat, matching the bot's historical behavior.
func NewController(bot BotClient, st *state.Manager, admins []int64, updateTimeout int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if updateTimeout <= 0 {
		updateTimeout = 30
	}
	allow := make(map[int64]struct{}, len(admins))
	for _, id := range admins {
		allow[id] = struct{}{}
	}
	return &Controller{
		bot:           bot,
		state:         st,
		admins:        allow,
		updateTimeout: updateTimeout,
		logger:        logger,
	}
}

// Run consumes bot updates until the context finishes.
func (c *Controller) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.updateTimeout
	updates := c.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handleUpdate(update)
		}
	}
}

func (c *Controller) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID
	var reply string
	if !c.authorized(chatID) {
		reply = "You are not authorized to control this bot."
	} else {
		reply = c.Handle(update.Message.Command(), update.Message.CommandArguments())
	}
	if reply == "" {
		return
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		c.logger.Error("command reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (c *Controller) authorized(chatID int64) bool {
	if len(c.admins) == 0 {
		return true
	}
	_, ok := c.admins[chatID]
	return ok
}

// Handle dispatches one command and returns the human-readable reply.
func (c *Controller) Handle(command, args string) string {
	switch command {
	case "start":
		return "Hello! I relay new posts from watched accounts to a channel. Use /help for commands."
	case "help":
		return helpText
	case "add":
		return c.cmdAdd(args)
	case "remove":
		return c.cmdRemove(args)
	case "list":
		return c.cmdList()
	case "setchannel":
		return c.cmdSetChannel(args)
	case "setinterval":
		return c.cmdSetInterval(args)
	case "pause":
		return c.cmdSetPaused(true, "Polling paused")
	case "resume":
		return c.cmdSetPaused(false, "Polling resumed")
	case "status":
		return c.cmdStatus()
	default:
		return "Unknown command. Use /help."
	}
}

const helpText = "/add @username - Start watching an account\n" +
	"/remove @username - Stop watching\n" +
	"/list - Show watched accounts\n" +
	"/setchannel @channel - Set output channel\n" +
	"/setinterval N - Set minutes between checks\n" +
	"/pause - Pause polling\n" +
	"/resume - Resume polling\n" +
	"/status - Show current status"

func (c *Controller) cmdAdd(args string) string {
	handle := firstArg(args)
	if handle == "" {
		return "Usage: /add @username"
	}
	account, added, err := c.state.AddAccount(handle)
	if err != nil {
		c.logger.Error("add account failed", zap.String("account", handle), zap.Error(err))
		return "Could not add account: " + err.Error()
	}
	if !added {
		return fmt.Sprintf("%s already tracked", account)
	}
	return fmt.Sprintf("Added %s", account)
}

func (c *Controller) cmdRemove(args string) string {
	handle := firstArg(args)
	if handle == "" {
		return "Usage: /remove @username"
	}
	account, removed, err := c.state.RemoveAccount(handle)
	if err != nil {
		c.logger.Error("remove account failed", zap.String("account", handle), zap.Error(err))
		return "Could not remove account: " + err.Error()
	}
	if !removed {
		return fmt.Sprintf("%s not found", account)
	}
	return fmt.Sprintf("Removed %s", account)
}

func (c *Controller) cmdList() string {
	accounts := c.state.Settings().Accounts
	if len(accounts) == 0 {
		return "No accounts tracked yet."
	}
	var b strings.Builder
	b.WriteString("Tracked accounts:")
	for i, a := range accounts {
		fmt.Fprintf(&b, "\n%d. %s", i+1, a)
	}
	return b.String()
}

func (c *Controller) cmdSetChannel(args string) string {
	channel := firstArg(args)
	if channel == "" {
		return "Usage: /setchannel @channel"
	}
	if err := c.state.SetChannel(channel); err != nil {
		c.logger.Error("set channel failed", zap.Error(err))
		return "Could not set channel: " + err.Error()
	}
	return fmt.Sprintf("Channel set to %s", channel)
}

func (c *Controller) cmdSetInterval(args string) string {
	raw := firstArg(args)
	if raw == "" {
		return "Usage: /setinterval N (minutes)"
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return "Invalid number"
	}
	stored, err := c.state.SetInterval(minutes)
	if err != nil {
		c.logger.Error("set interval failed", zap.Error(err))
		return "Could not set interval: " + err.Error()
	}
	return fmt.Sprintf("Interval set to %d minutes", stored)
}

func (c *Controller) cmdSetPaused(paused bool, ack string) string {
	if err := c.state.SetPaused(paused); err != nil {
		c.logger.Error("set paused failed", zap.Bool("paused", paused), zap.Error(err))
		return "Could not update state: " + err.Error()
	}
	return ack
}

func (c *Controller) cmdStatus() string {
	s := c.state.Settings()
	channel := s.Channel
	if channel == "" {
		channel = "(not set)"
	}
	paused := "no"
	if s.Paused {
		paused = "yes"
	}
	return fmt.Sprintf(
		"Accounts: %d\nInterval (min): %d\nChannel: %s\nPaused: %s",
		len(s.Accounts), s.IntervalMinutes, channel, paused,
	)
}

func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
