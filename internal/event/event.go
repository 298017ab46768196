package event

type Type string

const (
	TypeItemRegistered    Type = "item.registered"
	TypeItemReportedFound Type = "item.reported_found"
	TypeItemDroppedOff    Type = "item.dropped_off"
	TypeItemPickedUp      Type = "item.picked_up"
	TypeItemExpired       Type = "item.expired"
	TypeItemReset         Type = "item.reset"
	TypeItemUnlinked      Type = "item.unlinked"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
