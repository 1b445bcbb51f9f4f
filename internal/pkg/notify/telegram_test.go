package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/performance"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func betSnapshot() *models.DecisionSnapshot {
	return &models.DecisionSnapshot{
		MatchID:      "arsenal|chelsea|2025-04-12",
		HomeTeam:     "arsenal",
		AwayTeam:     "chelsea",
		CommenceTime: time.Date(2025, 4, 12, 18, 0, 0, 0, time.UTC),
		Decision:     models.DecisionBetNormal,
		FinalMarket:  models.MarketOver25,
		FinalOdds:    models.Float(1.8),
		FinalStake:   models.Float(1.0285),
		StakeVerdict: models.StakeVerdict{StakeMultiplier: 1.0285},
		Consensus:    models.ConsensusResult{ConsensusScore: 0.84, ConsensusCount: 5, Conviction: models.ConvictionStrong},
		MonteCarlo:   &models.MonteCarloResult{Robustness: models.RobustnessRobust, SuccessRate: 0.62},
	}
}

func TestTelegramNotifier_SendsBetsAndSummary(t *testing.T) {
	bot := &fakeBot{}
	n := newTelegramNotifier(bot, 42, 0, 10)

	ctx := context.Background()
	require.NoError(t, n.NotifyDecision(ctx, betSnapshot()))
	require.NoError(t, n.NotifyDecision(ctx, &models.DecisionSnapshot{Decision: models.DecisionSkip}))
	require.NoError(t, n.NotifySummary(ctx, performance.Summary{
		TotalMatches: 3, Bets: 1, TotalStaked: "1.03",
		ByDecision:   map[models.Decision]int{models.DecisionBetNormal: 1, models.DecisionSkip: 2},
		BySkipReason: map[models.SkipReason]int{models.ReasonNoADN: 2},
	}))
	n.Stop()

	sent := bot.texts()
	require.Len(t, sent, 2, "SKIP decisions are not announced")
	assert.Contains(t, sent[0], "BET\\_NORMAL")
	assert.Contains(t, sent[0], "over\\_2.5 @ *1.80*")
	assert.Contains(t, sent[0], "ROBUST")
	assert.Contains(t, sent[1], "Matches: 3 | Bets: 1")
	assert.Contains(t, sent[1], "skip no\\_adn: 2")
	assert.Contains(t, sent[1], "*1.03*")
}

func TestTelegramNotifier_FullQueueDrops(t *testing.T) {
	block := make(chan struct{})
	bot := &blockingBot{release: block}
	n := newTelegramNotifier(bot, 1, 0, 1)

	ctx := context.Background()
	require.NoError(t, n.NotifyDecision(ctx, betSnapshot()))
	// wait until the sender picked the first message up
	require.Eventually(t, func() bool { return n.QueueLen() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, n.NotifyDecision(ctx, betSnapshot()))
	assert.Error(t, n.NotifyDecision(ctx, betSnapshot()))

	close(block)
	n.Stop()
	assert.Error(t, n.NotifyDecision(ctx, betSnapshot()), "stopped notifier rejects messages")
}

type blockingBot struct {
	release chan struct{}
}

func (b *blockingBot) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	return tgbotapi.Message{}, nil
}

func TestNilAndNop(t *testing.T) {
	var n *TelegramNotifier
	assert.NoError(t, n.NotifyDecision(context.Background(), betSnapshot()))
	n.Stop()

	var nop Notifier = Nop{}
	assert.NoError(t, nop.NotifySummary(context.Background(), performance.Summary{}))
}
