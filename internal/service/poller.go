package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"rutosms/internal/archive"
	"rutosms/internal/constants"
	"rutosms/internal/errors"
	"rutosms/internal/metrics"
	"rutosms/internal/models"
	"rutosms/pkg/mqttbus"
	"rutosms/pkg/rutos"
	"rutosms/pkg/rutos/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Poller is the reconciliation engine. On a fixed period it fetches the
// router's message store, republishes every not-yet-seen message on the bus
// exactly once, arms deferred deletions when a retention window is
// configured, and drains deletions that have come due.
type Poller struct {
	api      rutos.Client
	bus      mqttbus.Client
	ledger   *Ledger
	sched    *DeletionScheduler
	archive  MessageArchive
	interval time.Duration

	// retention is the delay between a message's first sighting and its
	// deletion at the router. Zero disables deferred deletion.
	retention time.Duration

	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewPoller creates the poll loop. archive may be nil.
func NewPoller(api rutos.Client, bus mqttbus.Client, ledger *Ledger, sched *DeletionScheduler, arch MessageArchive, interval, retention time.Duration, logger *logrus.Logger) *Poller {
	return &Poller{
		api:       api,
		bus:       bus,
		ledger:    ledger,
		sched:     sched,
		archive:   arch,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start begins the background polling process
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller is already running")
	}

	if err := p.testConnection(ctx); err != nil {
		return fmt.Errorf("failed to reach router before starting poller: %w", err)
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.pollLoop()

	p.logger.WithFields(logrus.Fields{
		"interval":  p.interval,
		"retention": p.retention,
	}).Info("SMS poller started")

	return nil
}

// Stop gracefully stops the polling process
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.logger.Info("Stopping SMS poller...")
	p.cancel()
	p.wg.Wait()
	p.running = false
	p.logger.Info("SMS poller stopped")
}

// IsRunning returns whether the poller is currently active
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// testConnection verifies the router API answers before the loop commits.
func (p *Poller) testConnection(ctx context.Context) error {
	total, err := p.api.CountMessages(ctx)
	if err != nil {
		return err
	}
	p.logger.WithField("total", total).Debug("Router reachable")
	return nil
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick(p.ctx)
		}
	}
}

// tick runs one reconciliation pass. A failed list call skips publication
// for this tick only; the ledger is untouched and the next tick proceeds
// normally. Per-record failures never abort the rest of the batch.
func (p *Poller) tick(ctx context.Context) {
	messages, err := p.api.ListMessages(ctx)
	if err != nil {
		metrics.IncrementCounter(metrics.PollFailuresTotal)
		if errors.GetCode(err) == errors.ErrCodeRouterAuth {
			p.logger.WithError(err).Error("Router rejected credentials; check username/password (treated as transient, router may be rebooting)")
		} else {
			p.logger.WithError(err).Warn("Failed to list messages, will retry on next tick")
		}
	} else {
		metrics.IncrementCounter(metrics.PollsTotal)
		for _, msg := range messages {
			if !p.ledger.MarkIfNew(msg.Index) {
				continue
			}
			p.republish(ctx, msg)
		}
		metrics.SetGauge(metrics.LedgerSize, float64(p.ledger.Len()))
	}

	p.drainDeletions(ctx)
	metrics.SetGauge(metrics.PendingDeletions, float64(p.sched.Len()))
}

// republish publishes one newly-seen message and arms its deferred
// deletion. The index is already marked; publish or archive failures are
// logged but the message stays marked, matching the no-redelivery contract.
func (p *Poller) republish(ctx context.Context, msg types.Message) {
	log := p.logger.WithFields(logrus.Fields{
		"index":  msg.Index,
		"sender": msg.Sender,
	})

	payload, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("Failed to encode received message")
		return
	}

	if err := p.bus.Publish(constants.TopicReceived, payload); err != nil {
		log.WithError(err).Error("Failed to publish received message")
	} else {
		metrics.IncrementCounter(metrics.MessagesReceivedTotal)
		log.Info("Republished message from router")
	}

	if p.retention > 0 {
		p.sched.Arm(msg.Index, time.Now().Add(p.retention))
	}

	if p.archive != nil {
		if err := p.archive.SaveReceived(ctx, msg); err != nil {
			log.WithError(err).Warn("Failed to archive received message")
		}
	}
}

// drainDeletions deletes every message whose retention window has elapsed.
// Failed deletions stay armed and retry on a later tick.
func (p *Poller) drainDeletions(ctx context.Context) {
	for _, index := range p.sched.Due(time.Now()) {
		log := p.logger.WithField("index", index)

		result, err := p.api.DeleteMessage(ctx, index)
		if err != nil {
			metrics.IncrementCounter(metrics.DeleteFailuresTotal)
			log.WithError(err).Warn("Deferred deletion failed, will retry")
			continue
		}
		if !result.Success {
			metrics.IncrementCounter(metrics.DeleteFailuresTotal)
			log.WithField("response", result.Raw).Warn("Router refused deferred deletion, will retry")
			continue
		}

		p.sched.Clear(index)
		metrics.IncrementCounter(metrics.DeletesTotal)
		log.Info("Deleted message after retention window")

		p.publishDeleted(index, result.Raw)

		if p.archive != nil {
			if err := p.archive.SaveResult(ctx, archive.DirectionDeleted, index, "", "", result.Raw, true); err != nil {
				log.WithError(err).Warn("Failed to archive deletion")
			}
		}
	}
}

func (p *Poller) publishDeleted(index, response string) {
	result := models.CommandResult{
		ID:       uuid.NewString(),
		Index:    index,
		Success:  true,
		Response: response,
	}
	payload, err := json.Marshal(result)
	if err != nil {
		p.logger.WithError(err).Error("Failed to encode deletion result")
		return
	}
	if err := p.bus.Publish(constants.TopicDeleted, payload); err != nil {
		p.logger.WithError(err).WithField("index", index).Error("Failed to publish deletion result")
	}
}
