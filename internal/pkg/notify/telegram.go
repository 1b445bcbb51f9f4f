package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/performance"
)

// Notifier publishes BET decisions and run summaries.
type Notifier interface {
	NotifyDecision(ctx context.Context, snap *models.DecisionSnapshot) error
	NotifySummary(ctx context.Context, summary performance.Summary) error
	Stop()
}

// Nop discards every notification.
type Nop struct{}

func (Nop) NotifyDecision(context.Context, *models.DecisionSnapshot) error { return nil }
func (Nop) NotifySummary(context.Context, performance.Summary) error      { return nil }
func (Nop) Stop()                                                         {}

// sender is the part of tgbotapi.BotAPI the notifier uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends queued messages to one chat, at most one per send interval
// to stay below the Telegram rate limit (~30/min).
type TelegramNotifier struct {
	bot      sender
	chatID   int64
	interval time.Duration
	mu       sync.Mutex
	lastSend time.Time

	// Async queue for sending messages
	queue     chan string
	queueDone chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewTelegramNotifier connects the bot and starts the sender goroutine
func NewTelegramNotifier(cfg config.TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	// Test bot connection
	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}

	n := newTelegramNotifier(bot, cfg.ChatID, cfg.SendInterval, cfg.QueueSize)
	slog.Info("Telegram notifier initialized", "chat_id", cfg.ChatID)
	return n, nil
}

func newTelegramNotifier(bot sender, chatID int64, interval time.Duration, queueSize int) *TelegramNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		interval:  interval,
		queue:     make(chan string, queueSize),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	// Start background worker for sending messages
	n.wg.Add(1)
	go n.messageSender()
	return n
}

// QueueLen returns current number of messages in the send queue
func (n *TelegramNotifier) QueueLen() int {
	if n == nil {
		return 0
	}
	return len(n.queue)
}

// messageSender runs in background and sends queued messages with proper intervals
func (n *TelegramNotifier) messageSender() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			// Drain remaining messages before exit
			for {
				select {
				case text := <-n.queue:
					n.send(text)
				default:
					close(n.queueDone)
					return
				}
			}
		case text := <-n.queue:
			n.send(text)
		}
	}
}

func (n *TelegramNotifier) send(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if wait := n.interval - time.Since(n.lastSend); wait > 0 && !n.lastSend.IsZero() {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-n.ctx.Done():
			// stopping: flush without waiting
			timer.Stop()
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	n.lastSend = time.Now()
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Telegram send: failed", "error", err, "queue_length", len(n.queue))
		return
	}
	slog.Debug("Telegram send: success", "queue_length", len(n.queue))
}

func (n *TelegramNotifier) enqueue(ctx context.Context, text string) error {
	select {
	case <-n.ctx.Done():
		return fmt.Errorf("notifier stopped")
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- text:
		return nil
	default:
		// Queue is full, log warning but don't block
		slog.Warn("Telegram message queue is full, dropping message")
		return fmt.Errorf("message queue is full")
	}
}

// NotifyDecision queues an alert for a BET decision (non-blocking). SKIP decisions are ignored.
func (n *TelegramNotifier) NotifyDecision(ctx context.Context, snap *models.DecisionSnapshot) error {
	if n == nil || snap == nil || !snap.Decision.IsBet() {
		return nil
	}
	return n.enqueue(ctx, formatDecision(snap))
}

// NotifySummary queues the end-of-run summary (non-blocking)
func (n *TelegramNotifier) NotifySummary(ctx context.Context, summary performance.Summary) error {
	if n == nil {
		return nil
	}
	return n.enqueue(ctx, formatSummary(summary))
}

// Stop stops the notifier and waits for all queued messages to be sent
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	<-n.queueDone
	n.wg.Wait()
}

func formatDecision(snap *models.DecisionSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 *%s*\n\n", escapeMarkdown(string(snap.Decision))))
	b.WriteString(fmt.Sprintf("*%s vs %s*\n", escapeMarkdown(snap.HomeTeam), escapeMarkdown(snap.AwayTeam)))
	b.WriteString(fmt.Sprintf("⚽ %s", escapeMarkdown(snap.FinalMarket.String())))
	if snap.FinalOdds != nil {
		b.WriteString(fmt.Sprintf(" @ *%.2f*", *snap.FinalOdds))
	}
	b.WriteString("\n")
	if snap.FinalStake != nil {
		b.WriteString(fmt.Sprintf("💰 Stake: *%.2f* (x%.3f)\n", *snap.FinalStake, snap.StakeVerdict.StakeMultiplier))
	}
	b.WriteString(fmt.Sprintf("🗳 Consensus: %.2f (%d/6, %s)\n",
		snap.Consensus.ConsensusScore, snap.Consensus.ConsensusCount, snap.Consensus.Conviction))
	if snap.MonteCarlo != nil {
		b.WriteString(fmt.Sprintf("🎲 Monte Carlo: %s, success %.0f%%\n",
			escapeMarkdown(string(snap.MonteCarlo.Robustness)), snap.MonteCarlo.SuccessRate*100))
	}
	if !snap.CommenceTime.IsZero() {
		b.WriteString(fmt.Sprintf("🕐 Kick-off: %s\n", snap.CommenceTime.UTC().Format("2006-01-02 15:04 UTC")))
	}
	return b.String()
}

func formatSummary(s performance.Summary) string {
	var b strings.Builder
	b.WriteString("📊 *Session summary*\n\n")
	b.WriteString(fmt.Sprintf("Matches: %d | Bets: %d\n", s.TotalMatches, s.Bets))
	for _, d := range []models.Decision{models.DecisionBetStrong, models.DecisionBetNormal, models.DecisionBetCautious, models.DecisionSkip} {
		if c := s.ByDecision[d]; c > 0 {
			b.WriteString(fmt.Sprintf("%s: %d\n", escapeMarkdown(string(d)), c))
		}
	}
	reasons := make([]string, 0, len(s.BySkipReason))
	for r := range s.BySkipReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		b.WriteString(fmt.Sprintf("  skip %s: %d\n", escapeMarkdown(r), s.BySkipReason[models.SkipReason(r)]))
	}
	b.WriteString(fmt.Sprintf("💰 Total staked: *%s*\n", s.TotalStaked))
	if s.MonteCarloRuns > 0 {
		b.WriteString(fmt.Sprintf("🎲 Avg MC success: %.0f%%\n", s.AverageMCSuccessRate*100))
	}
	return b.String()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
