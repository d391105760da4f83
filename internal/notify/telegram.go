package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/models/config"
	"dance-school-crm/internal/service"
)

// TelegramNotifier шлёт администраторам уведомления о заменах и отменах.
// Без BOT_TOKEN возвращается nil — сервисы это переживают.
type TelegramNotifier struct {
	api      *tgbotapi.BotAPI
	adminIDs []int64
	logger   *zap.Logger
}

func NewTelegramNotifier(cfg *config.Config, logger *zap.Logger) (service.Notifier, error) {
	if cfg.Bot.Token == "" {
		logger.Info("BOT_TOKEN не задан, уведомления отключены")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Bot.Debug

	logger.Info("🤖 Бот уведомлений инициализирован",
		zap.String("username", api.Self.UserName),
		zap.Int64s("admin_ids", cfg.Bot.AdminIDs))

	return &TelegramNotifier{api: api, adminIDs: cfg.Bot.AdminIDs, logger: logger}, nil
}

func (n *TelegramNotifier) send(text string) {
	for _, chatID := range n.adminIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.api.Send(msg); err != nil {
			n.logger.Warn("не удалось отправить уведомление",
				zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (n *TelegramNotifier) NotifySubstitution(session *models.Session, originalTrainerID, substituteTrainerID int64) {
	n.send(fmt.Sprintf(
		"🔄 Замена преподавателя\n%s %s–%s, группа «%s»\nпреподаватель %d → %d",
		session.SessionDate.Format("02.01.2006"),
		session.StartTime, session.EndTime,
		session.GroupName,
		originalTrainerID, substituteTrainerID,
	))
}

func (n *TelegramNotifier) NotifyCancellation(session *models.Session, reason string) {
	text := fmt.Sprintf(
		"❌ Занятие отменено\n%s %s–%s, группа «%s»",
		session.SessionDate.Format("02.01.2006"),
		session.StartTime, session.EndTime,
		session.GroupName,
	)
	if reason != "" {
		text += "\nПричина: " + reason
	}
	n.send(text)
}
