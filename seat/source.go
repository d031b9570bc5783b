// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: seat/source.go
// Summary: Outgoing drag/selection source state machine.
// Usage: Created when the application starts a drag or sets the selection;
// driven by data-source protocol events until it finishes or cancels.

package seat

import "log"

// SourcePhase is the sending machine's current state.
type SourcePhase int

const (
	SourceIdle SourcePhase = iota
	SourceAccepted
	SourceSending
	SourceFinished
	SourceCancelled
)

func (p SourcePhase) String() string {
	switch p {
	case SourceIdle:
		return "idle"
	case SourceAccepted:
		return "mime-accepted"
	case SourceSending:
		return "sending"
	case SourceFinished:
		return "finished"
	case SourceCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Source is the sending end of a drag or clipboard transfer. Every run
// terminates in Finished or Cancelled; transfer failures are a Cancelled
// outcome, never a crash.
type Source struct {
	phase SourcePhase
	mimes []string
	data  map[string][]byte
	mime  string
}

// NewSource creates a source offering the given MIME types. Data maps each
// type to the payload bytes handed over on send.
func NewSource(mimes []string, data map[string][]byte) *Source {
	return &Source{mimes: mimes, data: data}
}

// Phase returns the current state.
func (s *Source) Phase() SourcePhase { return s.phase }

// Offered reports whether the source offers the MIME type.
func (s *Source) Offered(mime string) bool {
	for _, m := range s.mimes {
		if m == mime {
			return true
		}
	}
	return false
}

// Accept records the destination choosing a MIME type.
func (s *Source) Accept(mime string) bool {
	if s.phase != SourceIdle && s.phase != SourceAccepted {
		return false
	}
	if !s.Offered(mime) {
		log.Printf("Source: destination accepted unoffered mime %q, ignoring", mime)
		return false
	}
	s.phase = SourceAccepted
	s.mime = mime
	return true
}

// Payload returns the bytes for the MIME type being sent. The second
// return is false when the type was never offered.
func (s *Source) Payload(mime string) ([]byte, bool) {
	if !s.Offered(mime) {
		return nil, false
	}
	return s.data[mime], true
}

// BeginSend transitions into Sending for the given MIME type, returning
// the payload to write. Sends for unoffered types cancel the source.
func (s *Source) BeginSend(mime string) ([]byte, bool) {
	if s.phase == SourceFinished || s.phase == SourceCancelled {
		return nil, false
	}
	payload, ok := s.Payload(mime)
	if !ok {
		s.phase = SourceCancelled
		return nil, false
	}
	s.phase = SourceSending
	s.mime = mime
	return payload, true
}

// FinishSend records the outcome of a send. A write failure is reported as
// Cancelled so the application can always react to a terminal state.
func (s *Source) FinishSend(err error) {
	if s.phase != SourceSending {
		return
	}
	if err != nil {
		log.Printf("Source: transfer of %q failed: %v", s.mime, err)
		s.phase = SourceCancelled
		return
	}
	s.phase = SourceFinished
}

// Cancel aborts the source.
func (s *Source) Cancel() {
	if s.phase == SourceFinished {
		return
	}
	s.phase = SourceCancelled
}

// Done reports whether the machine reached a terminal state.
func (s *Source) Done() bool {
	return s.phase == SourceFinished || s.phase == SourceCancelled
}
