// Package events encodes program events and fans them out to observers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"poolvault/internal/model"
)

// Sink receives encoded event records.
type Sink interface {
	PutEvents(ctx context.Context, records []model.EventRecord) error
}

// Emitter is a one-way notification channel. Sink failures are logged and never reach
// the caller: events are not authoritative state.
type Emitter struct {
	program solana.PublicKey
	sinks   []Sink
	logger  *zap.Logger
	now     func() time.Time
}

func NewEmitter(program solana.PublicKey, logger *zap.Logger, sinks ...Sink) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		program: program,
		sinks:   sinks,
		logger:  logger,
		now:     time.Now,
	}
}

// Emit encodes events of the committed transaction txID and delivers them to every sink.
func (e *Emitter) Emit(ctx context.Context, txID uuid.UUID, evts ...model.Event) {
	if len(evts) == 0 {
		return
	}

	emittedAt := e.now().UTC()
	records := make([]model.EventRecord, 0, len(evts))
	for i, evt := range evts {
		record, err := Encode(e.program, txID, uint32(i), evt, emittedAt)
		if err != nil {
			e.logger.Error("encode event", zap.Error(err), zap.String("event", evt.EventName()))
			continue
		}
		records = append(records, record)
	}

	for _, sink := range e.sinks {
		if err := sink.PutEvents(ctx, records); err != nil {
			e.logger.Warn("event sink failed",
				zap.Error(err),
				zap.String("tx_id", txID.String()),
				zap.String("sink", fmt.Sprintf("%T", sink)),
			)
		}
	}
}

// Encode builds the record for evt: the payload is the discriminator followed by the
// borsh-encoded event, hex encoded.
func Encode(program solana.PublicKey, txID uuid.UUID, index uint32, evt model.Event, emittedAt time.Time) (model.EventRecord, error) {
	data, err := model.Encode(evt.Discriminator(), evt)
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("encode %s: %w", evt.EventName(), err)
	}
	return model.EventRecord{
		ID:        uuid.NewString(),
		TxID:      txID.String(),
		Program:   program.String(),
		Index:     index,
		Name:      evt.EventName(),
		Data:      hexutil.Encode(data),
		Decoded:   evt,
		EmittedAt: emittedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// Decode recovers the typed event from a record's payload.
func Decode(record model.EventRecord) (model.Event, error) {
	data, err := hexutil.Decode(record.Data)
	if err != nil {
		return nil, fmt.Errorf("decode event data: %w", err)
	}
	if len(data) < model.DiscriminatorSize {
		return nil, fmt.Errorf("event data too short: %d bytes", len(data))
	}

	var d model.Discriminator
	copy(d[:], data)
	switch d {
	case model.PoolCreatedDiscriminator:
		var evt model.PoolCreated
		if err := model.Decode(d, data, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	case model.PoolDepositDiscriminator:
		var evt model.PoolDeposit
		if err := model.Decode(d, data, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	default:
		return nil, fmt.Errorf("unknown event discriminator %x", d)
	}
}
