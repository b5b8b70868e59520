// internal/app/events.go
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/events"
)

// subscribeEventLog пишет события эскроу и обменов в журнал.
func subscribeEventLog(bus *events.Bus, logger *zap.Logger) []events.Subscription {
	log := logger.Named("events")
	handler := events.HandlerFunc(func(_ context.Context, e events.Event) error {
		fields := []zap.Field{zap.String("event_type", string(e.Type())), zap.Time("at", e.Timestamp())}

		switch ev := e.(type) {
		case events.EscrowStateChangedEvent:
			log.Info("Escrow state", append(fields,
				zap.String("escrow", ev.Escrow),
				zap.String("from", ev.From),
				zap.String("to", ev.To))...)
		case events.EscrowSetupStepEvent:
			log.Info("Escrow setup", append(fields,
				zap.String("escrow", ev.Escrow),
				zap.String("step", ev.Step),
				zap.String("signature", ev.Signature))...)
		case events.SwapCompletedEvent:
			log.Info("Swap", append(fields,
				zap.String("direction", ev.Direction),
				zap.String("asset", ev.Asset),
				zap.String("signature", ev.Signature))...)
		case events.SwapFailedEvent:
			log.Warn("Swap", append(fields,
				zap.String("direction", ev.Direction),
				zap.String("asset", ev.Asset),
				zap.String("kind", ev.Kind),
				zap.Error(ev.Error))...)
		default:
			log.Debug("Event", fields...)
		}
		return nil
	})

	types := []events.EventType{
		events.EscrowStateChanged,
		events.EscrowSetupStep,
		events.SwapCompleted,
		events.SwapFailed,
	}
	subs := make([]events.Subscription, 0, len(types))
	for _, t := range types {
		subs = append(subs, bus.Subscribe(t, handler))
	}
	return subs
}
