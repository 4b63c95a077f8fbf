package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while disconnected, oldest first.
// Not safe for concurrent use; the caller synchronizes.
//
// A retained message replaces any earlier retained message on the same
// topic: the broker would only keep the last one anyway. When full, the
// oldest message is dropped.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // since last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

// push queues msg. It returns true on the first drop since the last drain
// so the caller can log once per outage.
func (o *outbox) push(msg bufferedMsg) bool {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}

	firstDrop := false
	if len(o.msgs) >= o.capacity {
		firstDrop = o.dropped == 0
		o.dropped++
		if o.capacity <= 0 {
			return firstDrop
		}
		o.msgs = append(o.msgs[:0], o.msgs[1:]...)
	}
	o.msgs = append(o.msgs, msg)
	return firstDrop
}

// drain returns the queued messages and how many were dropped, then empties
// the outbox.
func (o *outbox) drain() ([]bufferedMsg, int) {
	if len(o.msgs) == 0 && o.dropped == 0 {
		return nil, 0
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	dropped := o.dropped
	o.msgs = o.msgs[:0]
	o.dropped = 0
	if len(out) == 0 {
		out = nil
	}
	return out, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
