package signal

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/vlhsmylv/standlog-script/pkg/log"
)

// ReplaySource reads newline-delimited JSON signals from a reader and
// delivers them in file order. Used by the CLI to feed recorded sessions
// through the pipeline. Malformed lines are skipped, not fatal.
type ReplaySource struct {
	r       io.Reader
	handler Handler
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReplaySource creates a replay source over r
func NewReplaySource(r io.Reader) *ReplaySource {
	return &ReplaySource{
		r:      r,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// OnSignal registers the handler
func (s *ReplaySource) OnSignal(h Handler) {
	s.handler = h
}

// Start begins reading. Delivery ends when the reader is exhausted or Stop
// is called, whichever comes first.
func (s *ReplaySource) Start() error {
	go s.run()
	return nil
}

// Stop ends delivery
func (s *ReplaySource) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
}

// Done is closed once the reader is exhausted
func (s *ReplaySource) Done() <-chan struct{} {
	return s.doneCh
}

func (s *ReplaySource) run() {
	defer close(s.doneCh)

	logger := log.WithComponent("replay")
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		select {
		case <-s.stopCh:
			return
		default:
		}

		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var sig Signal
		if err := json.Unmarshal(raw, &sig); err != nil {
			logger.Debug().Err(err).Int("line", line).Msg("skipping malformed signal")
			continue
		}
		if s.handler != nil {
			s.handler(sig)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug().Err(err).Msg("replay read error")
	}
}
