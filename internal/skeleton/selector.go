package skeleton

import "sync"

// Selector picks the performer to follow from the bodies of a frame.
// Once a body has been chosen its tracking id is remembered and preferred
// on later frames, so a second person walking into view does not steal
// the session.
type Selector struct {
	mu         sync.Mutex
	trackingID int
}

// NewSelector creates a Selector with no remembered performer.
func NewSelector() *Selector {
	return &Selector{}
}

// Select returns the followed body, or nil if no tracked body is present.
func (s *Selector) Select(bodies []Body) *Body {
	s.mu.Lock()
	defer s.mu.Unlock()

	var selected *Body
	if s.trackingID != 0 {
		for i := range bodies {
			if bodies[i].Tracked && bodies[i].TrackingID == s.trackingID {
				selected = &bodies[i]
				break
			}
		}
	} else {
		for i := range bodies {
			if bodies[i].Tracked {
				selected = &bodies[i]
				break
			}
		}
	}

	if selected != nil {
		s.trackingID = selected.TrackingID
	}
	return selected
}

// TrackingID returns the remembered tracking id, 0 if none.
func (s *Selector) TrackingID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackingID
}

// Reset forgets the remembered performer.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackingID = 0
}
