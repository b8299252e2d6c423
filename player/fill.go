package player

import (
	"errors"
	"io"
)

// fillLoop refills ring r from the session's stream each time the matching
// consumer signals. It returns once s stops being the current session.
func (p *Player) fillLoop(s *session, r *ring, kind Kind, st *fillState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.session == s {
		p.fillLocked(s, r, kind, st, true)
		if p.session != s {
			break
		}
		r.cond.Wait()
	}

	st.log.Debug("fill worker exiting", "path", s.path)
	return nil
}

// fillLocked pulls at most one frame into each eligible empty slot, in ring
// order. The pass ends at the first slot the stream cannot fill so the ring
// never holds frames out of order. With yield set, p.mu is released between
// pulls; Load and SizeAllocate prime without yielding so no command sees a
// half-started session.
func (p *Player) fillLocked(s *session, r *ring, kind Kind, st *fillState, yield bool) {
	if st.eof {
		return
	}

	budget := max(r.capacity()-1, 1)
	for n := 0; n < budget; n++ {
		if p.session != s {
			return
		}

		i, ok := r.nextFillable()
		if !ok {
			return
		}
		slot := r.slots[i]

		filled, err := s.stream.PullFrame(kind, slot)
		if errors.Is(err, io.EOF) {
			st.eof = true
			st.log.Info("end of stream", "path", s.path)
			return
		}
		if err != nil {
			st.failures++
			p.stats.PullFailures++
			if st.failures == p.opts.MaxPullFailures {
				st.log.Warn("decode keeps failing", "failures", st.failures, "error", err)
			} else {
				st.log.Debug("pull frame", "error", err)
			}
			return
		}
		if !filled {
			return
		}

		st.failures = 0
		slot.Kind = kind
		slot.markFilled()

		if yield && n+1 < budget {
			// let the audio callback and the driver in between decodes
			p.mu.Unlock()
			p.mu.Lock()
		}
	}
}
