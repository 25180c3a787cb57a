package audit

import "log"

type Event struct {
	ActorID  *string
	Action   string
	Entity   string
	EntityID *string
	Metadata any

	// Alert marks events an operator must act on (settlement failures,
	// exhausted capture retries). They are persisted like any audit row
	// but flagged for the ops dashboard.
	Alert bool
}

// Sink persists events. The gorm Logger is the production sink.
type Sink interface {
	Log(Event) error
}

type Dispatcher struct {
	logger Sink
	queue  chan Event
}

func NewDispatcher(logger Sink) *Dispatcher {
	d := &Dispatcher{
		logger: logger,
		queue:  make(chan Event, 100),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	for ev := range d.queue {
		if err := d.logger.Log(ev); err != nil {
			log.Println("audit error:", err)
		}
	}
}

func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.queue <- ev:
	default:
		// Full queue: drop audit rather than block a request, but alerts
		// are too important to lose silently.
		log.Println("audit queue full, dropping event:", ev.Action)
	}
}

// Helpers for the two common shapes.

func BookingEvent(actorID *string, action, bookingID string) Event {
	return Event{ActorID: actorID, Action: action, Entity: "booking", EntityID: &bookingID}
}

func SettlementAlert(action, bookingID string, meta any) Event {
	return Event{Action: action, Entity: "booking", EntityID: &bookingID, Metadata: meta, Alert: true}
}
