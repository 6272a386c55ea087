package domain

// EventQueue carries inbound events from a Source to the relay.
type EventQueue interface {
	Publish(ev InboundEvent)
	Subscribe() <-chan InboundEvent
	Close()
}
