package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/models"
	"github.com/xaenox/sentia/internal/storage"
	"go.uber.org/zap"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api        *tgbotapi.BotAPI
	sender     sender
	storage    storage.Storage
	classifier classifier.Classifier
	logger     *zap.Logger
}

func New(token string, storage storage.Storage, classifier classifier.Classifier, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, storage, classifier, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, storage storage.Storage, classifier classifier.Classifier, logger *zap.Logger) *Bot {
	return &Bot{
		sender:     s,
		storage:    storage,
		classifier: classifier,
		logger:     logger,
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "Envíame un texto para analizar cómo te sientes.")
		return
	}

	dist, source, err := classifier.ClassifyWithSource(ctx, b.classifier, classifier.RawText(content))
	if err != nil {
		b.logger.Error("Failed to classify message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "No pude analizar tu mensaje. Inténtalo de nuevo.")
		return
	}

	decision := classifier.Decide(dist, source)
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatClassification(decision, dist))
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "reporte":
		b.handleReport(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Comando desconocido. Usa /help para ver los comandos disponibles.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `¡Hola! Soy Sentia 🧭
Cuéntame cómo te sientes y te diré si tu mensaje suena negativo, neutro o positivo.

Para guardar un reporte a nombre de un empleado usa /reporte.
Usa /help para ver todos los comandos.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Comandos disponibles:
/start - Iniciar el bot
/help - Mostrar esta ayuda
/reporte <documento> <texto> - Guardar un reporte y su análisis

Cualquier otro mensaje se analiza sin guardarse.`

	b.sendMessage(message.Chat.ID, help)
}

var errUsage = errors.New("uso: /reporte <documento> <texto>")

// parseReportArgs splits "/reporte" arguments into the employee document and
// the free text.
func parseReportArgs(args string) (documentID, text string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", errUsage
	}
	documentID = fields[0]
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), documentID))
	return documentID, text, nil
}

func (b *Bot) handleReport(ctx context.Context, message *tgbotapi.Message) {
	documentID, text, err := parseReportArgs(message.CommandArguments())
	if err != nil {
		b.sendMessage(message.Chat.ID, err.Error())
		return
	}

	if _, err := b.storage.GetEmployee(ctx, documentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.sendMessage(message.Chat.ID, fmt.Sprintf("No encontré al empleado %s. Regístralo primero.", documentID))
			return
		}
		b.logger.Error("Failed to load employee",
			zap.Error(err),
			zap.String("employee_id", documentID))
		b.sendErrorMessage(message.Chat.ID, "No pude guardar tu reporte. Inténtalo de nuevo.")
		return
	}

	// Nothing is stored until the classifier has answered.
	dist, source, err := classifier.ClassifyWithSource(ctx, b.classifier, classifier.RawText(text))
	if err != nil {
		b.logger.Error("Failed to classify report",
			zap.Error(err),
			zap.String("employee_id", documentID))
		b.sendErrorMessage(message.Chat.ID, "No pude analizar tu reporte. Inténtalo de nuevo.")
		return
	}

	report := &models.Report{EmployeeID: documentID, Description: &text}
	if err := b.storage.CreateReport(ctx, report); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.sendMessage(message.Chat.ID, fmt.Sprintf("No encontré al empleado %s. Regístralo primero.", documentID))
			return
		}
		b.logger.Error("Failed to save report",
			zap.Error(err),
			zap.String("employee_id", documentID))
		b.sendErrorMessage(message.Chat.ID, "No pude guardar tu reporte. Inténtalo de nuevo.")
		return
	}

	decision := classifier.Decide(dist, source)
	result := &models.Result{
		ReportID:         report.ID,
		PrimaryEmotion:   string(decision.Primary),
		SecondaryEmotion: string(decision.Secondary),
		Summary:          decision.Summary,
		Model:            decision.Model,
	}
	if err := b.storage.SaveResult(ctx, result); err != nil {
		b.logger.Error("Failed to save result",
			zap.Error(err),
			zap.Int64("report_id", report.ID))
		b.sendErrorMessage(message.Chat.ID, fmt.Sprintf("Guardé el reporte %d, pero no su resultado.", report.ID))
		return
	}

	b.logger.Info("Report classified",
		zap.String("employee_id", documentID),
		zap.Int64("report_id", report.ID),
		zap.String("primary", result.PrimaryEmotion))

	text = escapeMarkdown(fmt.Sprintf("Reporte %d guardado.", report.ID)) + "\n\n" + formatClassification(decision, dist)
	b.sendMarkdown(message.Chat.ID, message.MessageID, text)
}

// formatClassification renders a decision as MarkdownV2.
func formatClassification(decision models.ClassificationResult, dist models.Distribution) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Emoción principal:* %s\n", escapeMarkdown(string(decision.Primary)))
	fmt.Fprintf(&sb, "*Emoción secundaria:* %s\n\n", escapeMarkdown(string(decision.Secondary)))
	for i, label := range models.Labels {
		line := fmt.Sprintf("%s: %.1f%%", label, dist[i]*100)
		sb.WriteString(escapeMarkdown(line) + "\n")
	}
	sb.WriteString("\n_" + escapeMarkdown(decision.Summary) + "_")
	return sb.String()
}

// escapeMarkdown escapes the characters MarkdownV2 reserves. The backslash
// goes first so the escapes added afterwards survive.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMarkdown(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID

	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send classification response",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
