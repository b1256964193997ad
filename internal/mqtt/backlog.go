package mqtt

// queuedMsg is a serialized message waiting for the broker to come back.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps the most recent messages produced while disconnected.
// When full, the oldest message is overwritten. Callers synchronize.
type backlog struct {
	slots []queuedMsg
	next  int // slot the next add writes to
	n     int
	// dropped counts messages overwritten since creation.
	dropped int
}

func newBacklog(size int) *backlog {
	if size < 1 {
		size = 1
	}
	return &backlog{slots: make([]queuedMsg, size)}
}

// add queues msg and reports whether an older message was overwritten.
func (b *backlog) add(msg queuedMsg) (overwrote bool) {
	b.slots[b.next] = msg
	b.next = (b.next + 1) % len(b.slots)
	if b.n == len(b.slots) {
		b.dropped++
		return true
	}
	b.n++
	return false
}

// takeAll empties the backlog, returning messages oldest first.
func (b *backlog) takeAll() []queuedMsg {
	if b.n == 0 {
		return nil
	}
	out := make([]queuedMsg, 0, b.n)
	first := (b.next - b.n + len(b.slots)) % len(b.slots)
	for i := 0; i < b.n; i++ {
		out = append(out, b.slots[(first+i)%len(b.slots)])
	}
	b.n = 0
	b.next = 0
	return out
}

func (b *backlog) len() int {
	return b.n
}
