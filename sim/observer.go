package sim

import "github.com/sirupsen/logrus"

// Observer receives simulation lifecycle events. Implementations must
// not mutate the simulation state they are handed (spec §4.9): the
// observer contract is read-only telemetry, never a second source of
// control flow.
type Observer interface {
	Notify(event string, fields map[string]any)
}

// ObserverBus fans a single Notify call out to every attached Observer,
// in attachment order (spec §4.9).
type ObserverBus struct {
	observers []Observer
}

// NewObserverBus creates an empty ObserverBus.
func NewObserverBus() *ObserverBus { return &ObserverBus{} }

// Attach registers an Observer to receive future notifications.
func (b *ObserverBus) Attach(o Observer) { b.observers = append(b.observers, o) }

// Notify delivers event to every attached observer.
func (b *ObserverBus) Notify(event string, fields map[string]any) {
	for _, o := range b.observers {
		o.Notify(event, fields)
	}
}

// Named event constants fired by the driver loop (spec §4.9). Field keys
// are event-specific and documented alongside each emission site.
// EventThreadReaped and EventResourcePressure are declared but not
// emitted anywhere in this package.
const (
	EventRequestCreated        = "request_created"
	EventRequestConcluded      = "request_concluded"
	EventThreadSpawned         = "thread_spawned"
	EventThreadReaped          = "thread_reaped"
	EventTransmissionStarted   = "transmission_started"
	EventLoadBalancePass       = "load_balance_pass"
	EventReplicaPlaced         = "replica_placed"
	EventResourcePressure      = "resource_pressure"
)

// LogObserver is the default Observer: it renders every event as a
// structured logrus entry at an appropriate level, following the
// teacher's package-level logrus.Infof/Warnf/Debugf logging convention.
type LogObserver struct{}

// NewLogObserver creates a LogObserver.
func NewLogObserver() *LogObserver { return &LogObserver{} }

func (LogObserver) Notify(event string, fields map[string]any) {
	entry := logrus.WithFields(logrus.Fields(fields))
	switch event {
	case EventResourcePressure:
		entry.Warn(event)
	case EventThreadReaped, EventLoadBalancePass:
		entry.Debug(event)
	default:
		entry.Info(event)
	}
}
