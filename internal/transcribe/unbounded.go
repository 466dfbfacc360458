package transcribe

// unbounded couples the pipeline producer to the frame-polling consumer
// through an in-memory FIFO, so a stalled UI never blocks recognition and
// event order is preserved. Closing in flushes the backlog and closes out.
func unbounded() (chan<- Progress, <-chan Progress) {
	in := make(chan Progress)
	out := make(chan Progress)

	go func() {
		defer close(out)
		var pending []Progress
		for {
			var outCh chan Progress
			var next Progress
			if len(pending) > 0 {
				outCh = out
				next = pending[0]
			}
			select {
			case ev, ok := <-in:
				if !ok {
					for _, ev := range pending {
						out <- ev
					}
					return
				}
				pending = append(pending, ev)
			case outCh <- next:
				pending = pending[1:]
			}
		}
	}()

	return in, out
}
