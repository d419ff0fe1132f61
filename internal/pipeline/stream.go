package pipeline

// Stream is the pull side of the pipeline: a lazily produced sequence of
// finalized utterance texts. A Stream lives for one Start/Stop cycle; after
// Stop, Next drains anything already produced and then reports done.
type Stream struct {
	ch   chan string
	done chan struct{}
}

func newStream(buf int) *Stream {
	return &Stream{
		ch:   make(chan string, buf),
		done: make(chan struct{}),
	}
}

// Next blocks until the next utterance text is available or the pipeline is
// stopped. The second return is false once the stream is exhausted.
func (s *Stream) Next() (string, bool) {
	select {
	case t := <-s.ch:
		return t, true
	case <-s.done:
		// Drain results that raced with shutdown.
		select {
		case t := <-s.ch:
			return t, true
		default:
			return "", false
		}
	}
}

// push delivers text to the consumer, giving up if the stream is closed
// while the consumer is not reading.
func (s *Stream) push(text string) bool {
	select {
	case s.ch <- text:
		return true
	case <-s.done:
		return false
	}
}

func (s *Stream) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
