package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"rutosms/internal/archive"
	"rutosms/internal/constants"
	"rutosms/internal/errors"
	"rutosms/internal/metrics"
	"rutosms/internal/models"
	"rutosms/pkg/mqttbus"
	"rutosms/pkg/rutos"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// commandTimeout bounds a single router call triggered from the bus.
const commandTimeout = 60 * time.Second

// Dispatcher translates inbound bus commands into router API calls. Every
// command produces exactly one API call followed by exactly one result
// publication carrying the call's actual outcome; nothing is published
// before the router answers. Paho runs handlers on its own goroutines, so a
// slow router call never blocks the poll loop, and shared state is only
// touched through the ledger and scheduler accessors.
type Dispatcher struct {
	api     rutos.Client
	bus     mqttbus.Client
	sched   *DeletionScheduler
	archive MessageArchive
	logger  *logrus.Logger
}

// NewDispatcher creates the command dispatcher. archive may be nil.
func NewDispatcher(api rutos.Client, bus mqttbus.Client, sched *DeletionScheduler, arch MessageArchive, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		api:     api,
		bus:     bus,
		sched:   sched,
		archive: arch,
		logger:  logger,
	}
}

// parseSendCommand builds a send command from the recipient segment lifted
// off the topic. The segment must be a single non-empty topic level.
func parseSendCommand(kind models.CommandKind, target string, payload []byte) (models.Command, error) {
	if target == "" || strings.Contains(target, "/") {
		return models.Command{}, errors.New(errors.ErrCodeMalformedCommand, "missing or invalid recipient in topic")
	}
	cmd := models.Command{Kind: kind, Body: string(payload)}
	if kind == models.CommandSendGroup {
		cmd.Group = target
	} else {
		cmd.Recipient = target
	}
	return cmd, nil
}

// parseDeleteCommand builds a delete command from the payload. The index
// must be a bare non-negative decimal; signed forms like "-5" or "+5" are
// rejected rather than forwarded to the router verbatim.
func parseDeleteCommand(payload []byte) (models.Command, error) {
	index := strings.TrimSpace(string(payload))
	if _, err := strconv.ParseUint(index, 10, 64); err != nil {
		return models.Command{}, errors.New(errors.ErrCodeMalformedCommand, "delete payload is not a message index")
	}
	return models.Command{Kind: models.CommandDelete, Index: index}, nil
}

// Subscribe registers the three command topics on the bus.
func (d *Dispatcher) Subscribe() error {
	if err := d.bus.Subscribe(constants.SubscriptionSendSingle, d.handleSendSingle); err != nil {
		return err
	}
	if err := d.bus.Subscribe(constants.SubscriptionSendGroup, d.handleSendGroup); err != nil {
		return err
	}
	return d.bus.Subscribe(constants.SubscriptionDelete, d.handleDelete)
}

// handleSendSingle handles send/single/<number>. The number is taken
// verbatim from the topic segment; callers own its format.
func (d *Dispatcher) handleSendSingle(topic string, payload []byte) {
	number := strings.TrimPrefix(topic, constants.TopicSendSinglePrefix)
	resultTopic := constants.TopicSentSinglePrefix + number
	log := d.logger.WithFields(logrus.Fields{"number": number, "topic": topic})

	cmd, err := parseSendCommand(models.CommandSendSingle, number, payload)
	if err != nil {
		d.reportMalformed(resultTopic, "", "missing or invalid number in topic", log)
		return
	}

	log.WithField("length", len(cmd.Body)).Info("Sending SMS")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result := models.CommandResult{ID: uuid.NewString()}
	sendResult, err := d.api.SendMessage(ctx, cmd.Recipient, cmd.Body)
	switch {
	case err != nil:
		metrics.IncrementCounter(metrics.SendFailuresTotal)
		result.Error = err.Error()
		log.WithError(err).Error("Send failed")
	case !sendResult.Success:
		metrics.IncrementCounter(metrics.SendFailuresTotal)
		result.Response = sendResult.Raw
		result.Error = "router refused send: " + strings.TrimSpace(sendResult.Raw)
		log.WithField("response", sendResult.Raw).Error("Router refused send")
	default:
		metrics.IncrementCounter(metrics.MessagesSentTotal)
		result.Success = true
		result.Response = sendResult.Raw
		log.Info("SMS sent")
	}

	d.publishResult(resultTopic, result, log)
	d.archiveResult(ctx, archive.DirectionSent, "", cmd.Recipient, cmd.Body, result, log)
}

// handleSendGroup handles send/group/<groupname>.
func (d *Dispatcher) handleSendGroup(topic string, payload []byte) {
	group := strings.TrimPrefix(topic, constants.TopicSendGroupPrefix)
	resultTopic := constants.TopicSentGroupPrefix + group
	log := d.logger.WithFields(logrus.Fields{"group": group, "topic": topic})

	cmd, err := parseSendCommand(models.CommandSendGroup, group, payload)
	if err != nil {
		d.reportMalformed(resultTopic, "", "missing or invalid group name in topic", log)
		return
	}

	log.WithField("length", len(cmd.Body)).Info("Sending group SMS")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result := models.CommandResult{ID: uuid.NewString()}
	sendResult, err := d.api.SendGroupMessage(ctx, cmd.Group, cmd.Body)
	switch {
	case err != nil:
		metrics.IncrementCounter(metrics.SendFailuresTotal)
		result.Error = err.Error()
		log.WithError(err).Error("Group send failed")
	case !sendResult.Success:
		metrics.IncrementCounter(metrics.SendFailuresTotal)
		result.Response = sendResult.Raw
		result.Error = "router refused send: " + strings.TrimSpace(sendResult.Raw)
		log.WithField("response", sendResult.Raw).Error("Router refused group send")
	default:
		metrics.IncrementCounter(metrics.MessagesSentTotal)
		result.Success = true
		result.Response = sendResult.Raw
		log.Info("Group SMS sent")
	}

	d.publishResult(resultTopic, result, log)
	d.archiveResult(ctx, archive.DirectionSent, "", cmd.Group, cmd.Body, result, log)
}

// handleDelete handles the delete topic. The payload is the message index;
// the deletion is immediate and bypasses the scheduler. On success any
// pending deferred deletion for the same index is cleared, so the scheduler
// won't issue a duplicate delete later.
func (d *Dispatcher) handleDelete(topic string, payload []byte) {
	index := strings.TrimSpace(string(payload))
	log := d.logger.WithField("index", index)

	cmd, err := parseDeleteCommand(payload)
	if err != nil {
		d.reportMalformed(constants.TopicDeleted, index, "delete payload is not a message index", log)
		return
	}

	log.Info("Deleting message")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result := models.CommandResult{ID: uuid.NewString(), Index: cmd.Index}
	deleteResult, err := d.api.DeleteMessage(ctx, cmd.Index)
	switch {
	case err != nil:
		metrics.IncrementCounter(metrics.DeleteFailuresTotal)
		result.Error = err.Error()
		log.WithError(err).Error("Delete failed")
	case !deleteResult.Success:
		metrics.IncrementCounter(metrics.DeleteFailuresTotal)
		result.Response = deleteResult.Raw
		result.Error = "router refused delete: " + strings.TrimSpace(deleteResult.Raw)
		log.WithField("response", deleteResult.Raw).Error("Router refused delete")
	default:
		metrics.IncrementCounter(metrics.DeletesTotal)
		result.Success = true
		result.Response = deleteResult.Raw
		d.sched.Clear(cmd.Index)
		log.Info("Message deleted")
	}

	d.publishResult(constants.TopicDeleted, result, log)
	d.archiveResult(ctx, archive.DirectionDeleted, cmd.Index, "", "", result, log)
}

// reportMalformed fails a command locally with a result publication and a
// log entry. The dispatcher keeps serving subsequent commands.
func (d *Dispatcher) reportMalformed(resultTopic, index, reason string, log *logrus.Entry) {
	metrics.IncrementCounter(metrics.CommandsMalformed)
	log.WithField("reason", reason).Error("Ignoring malformed command")

	d.publishResult(resultTopic, models.CommandResult{
		ID:    uuid.NewString(),
		Index: index,
		Error: reason,
	}, log)
}

func (d *Dispatcher) publishResult(topic string, result models.CommandResult, log *logrus.Entry) {
	payload, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Error("Failed to encode command result")
		return
	}
	if err := d.bus.Publish(topic, payload); err != nil {
		log.WithError(err).Error("Failed to publish command result")
	}
}

func (d *Dispatcher) archiveResult(ctx context.Context, direction archive.Direction, index, peer, body string, result models.CommandResult, log *logrus.Entry) {
	if d.archive == nil {
		return
	}
	if err := d.archive.SaveResult(ctx, direction, index, peer, body, result.Response, result.Success); err != nil {
		log.WithError(err).Warn("Failed to archive command result")
	}
}
