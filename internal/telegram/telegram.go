package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

// Notifier posts scheduler and workflow notifications into a configured chat.
type Notifier struct {
	log  *logrus.Entry
	bot  *tele.Bot
	chat tele.ChatID
}

func NewBot(token string) (*tele.Bot, error) {
	config := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(config)
	if err != nil {
		return nil, fmt.Errorf("new bot faild: %w", err)
	}
	return b, nil
}

func NewNotifier(log *logrus.Logger, bot *tele.Bot, chatID int64) *Notifier {
	return &Notifier{
		log:  log.WithField("component", "telegram"),
		bot:  bot,
		chat: tele.ChatID(chatID),
	}
}

func (n *Notifier) Notify(_ context.Context, message string, userID int) error {
	if _, err := n.bot.Send(n.chat, fmt.Sprintf("user %d: %s", userID, message)); err != nil {
		return fmt.Errorf("tg send message faild: %w", err)
	}
	return nil
}
