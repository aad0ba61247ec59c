package mp4frag

import "log"

// parserState is one phase of the box-parsing state machine.
type parserState int

const (
	stateFindFtyp parserState = iota
	stateFindMoov
	stateFindMoof
	stateFindMdat
	stateMoofHunt
)

// stateMachine is the core engine from spec section 4.2. Each Feed
// call drives an iterative (state, slice) work loop instead of
// recursive tail-forwarding, so a chunk made of many tiny boxes can't
// grow the call stack.
type stateMachine struct {
	state parserState

	ftyp []byte

	moof    []byte
	moofAcc *accumulator
	moofLen int

	mdatAcc *accumulator
	mdatLen int

	huntAttempts int
	huntLimit    int

	// onMoov is invoked once with the concatenated ftyp+moov bytes
	// when the moov box completes.
	onMoov func(ftypMoov []byte)

	// onSegment is invoked once per completed moof+mdat pair with the
	// exact concatenated segment bytes.
	onSegment func(segment []byte)

	// onRecovery is invoked once when a moof lookup fails and the
	// state machine engages MoofHunt corruption recovery.
	onRecovery func(attempts int)
}

func newStateMachine(huntLimit int, onMoov func([]byte), onSegment func([]byte), onRecovery func(int)) *stateMachine {
	return &stateMachine{
		state:      stateFindFtyp,
		huntLimit:  huntLimit,
		onMoov:     onMoov,
		onSegment:  onSegment,
		onRecovery: onRecovery,
	}
}

// feed processes chunk to completion, forwarding any unconsumed tail
// through successive state transitions before returning.
func (m *stateMachine) feed(chunk []byte) {
	cur := chunk
	for len(cur) > 0 {
		switch m.state {
		case stateFindFtyp:
			cur = m.handleFindFtyp(cur)
		case stateFindMoov:
			cur = m.handleFindMoov(cur)
		case stateFindMoof:
			cur = m.handleFindMoof(cur)
		case stateFindMdat:
			cur = m.handleFindMdat(cur)
		case stateMoofHunt:
			cur = m.handleMoofHunt(cur)
		default:
			return
		}
	}
}

func (m *stateMachine) handleFindFtyp(chunk []byte) []byte {
	if len(chunk) < 8 || !startsWith(tagFtyp, chunk) {
		log.Printf("mp4frag: ftyp not found, dropping chunk")
		return nil
	}
	l := int(lengthAt(chunk))
	if l == 0 {
		log.Printf("mp4frag: zero-length ftyp box, dropping chunk")
		return nil
	}
	switch {
	case l < len(chunk):
		m.ftyp = append([]byte(nil), chunk[:l]...)
		m.state = stateFindMoov
		return chunk[l:]
	case l == len(chunk):
		m.ftyp = append([]byte(nil), chunk...)
		m.state = stateFindMoov
		return nil
	default:
		log.Printf("mp4frag: ftyp length %d exceeds chunk length %d", l, len(chunk))
		return nil
	}
}

func (m *stateMachine) handleFindMoov(chunk []byte) []byte {
	if len(chunk) < 8 || !startsWith(tagMoov, chunk) {
		log.Printf("mp4frag: moov not found, dropping chunk")
		return nil
	}
	l := int(lengthAt(chunk))
	if l == 0 {
		log.Printf("mp4frag: zero-length moov box, dropping chunk")
		return nil
	}
	finish := func(moov []byte) {
		init := append(append([]byte(nil), m.ftyp...), moov...)
		m.ftyp = nil
		m.state = stateFindMoof
		m.onMoov(init)
	}
	switch {
	case l < len(chunk):
		finish(chunk[:l])
		return chunk[l:]
	case l == len(chunk):
		finish(chunk)
		return nil
	default:
		log.Printf("mp4frag: moov length %d exceeds chunk length %d", l, len(chunk))
		return nil
	}
}

func (m *stateMachine) handleFindMoof(chunk []byte) []byte {
	if m.moofAcc != nil {
		size := m.moofAcc.append(chunk)
		if size < m.moofLen {
			return nil
		}
		m.moof = m.moofAcc.bytes(m.moofLen)
		overflow := m.moofAcc.overflow()
		m.moofAcc = nil
		m.state = stateFindMdat
		if overflow > 0 {
			return chunk[len(chunk)-overflow:]
		}
		return nil
	}

	if len(chunk) < 8 || !startsWith(tagMoof, chunk) {
		if findTag(tagMfra, chunk) != -1 {
			// stream end marker: stop parsing silently.
			return nil
		}
		m.huntAttempts = 0
		m.state = stateMoofHunt
		if m.onRecovery != nil {
			m.onRecovery(m.huntAttempts)
		}
		return chunk
	}

	l := int(lengthAt(chunk))
	if l == 0 {
		log.Printf("mp4frag: zero-length moof box, dropping chunk")
		return nil
	}
	switch {
	case l < len(chunk):
		m.moof = append([]byte(nil), chunk[:l]...)
		m.moofLen = l
		m.state = stateFindMdat
		return chunk[l:]
	case l == len(chunk):
		m.moof = append([]byte(nil), chunk...)
		m.moofLen = l
		m.state = stateFindMdat
		return nil
	default:
		m.moofLen = l
		m.moofAcc = newAccumulator(chunk, l)
		return nil
	}
}

func (m *stateMachine) handleFindMdat(chunk []byte) []byte {
	if m.mdatAcc != nil {
		size := m.mdatAcc.append(chunk)
		if size < m.mdatLen {
			return nil
		}
		mdat := m.mdatAcc.bytes(m.mdatLen)
		overflow := m.mdatAcc.overflow()
		m.mdatAcc = nil
		m.finishSegment(mdat)
		if overflow > 0 {
			return chunk[len(chunk)-overflow:]
		}
		return nil
	}

	if len(chunk) < 8 || !startsWith(tagMdat, chunk) {
		log.Printf("mp4frag: mdat not found, dropping chunk")
		return nil
	}

	l := int(lengthAt(chunk))
	if l == 0 {
		log.Printf("mp4frag: zero-length mdat box, dropping chunk")
		return nil
	}
	switch {
	case l > len(chunk):
		m.mdatLen = l
		m.mdatAcc = newAccumulator(chunk, l)
		return nil
	case l < len(chunk):
		m.finishSegment(chunk[:l])
		return chunk[l:]
	default:
		m.finishSegment(chunk)
		return nil
	}
}

func (m *stateMachine) finishSegment(mdat []byte) {
	segment := make([]byte, 0, len(m.moof)+len(mdat))
	segment = append(segment, m.moof...)
	segment = append(segment, mdat...)
	m.moof = nil
	m.moofLen = 0
	m.mdatLen = 0
	m.state = stateFindMoof
	m.onSegment(segment)
}

func (m *stateMachine) handleMoofHunt(chunk []byte) []byte {
	if m.huntAttempts >= m.huntLimit {
		log.Printf("mp4frag: moof hunt failed after %d attempts", m.huntAttempts)
		return nil
	}
	m.huntAttempts++
	idx := findTag(tagMoof, chunk)
	if idx >= 4 {
		m.state = stateFindMoof
		return chunk[idx-4:]
	}
	return nil
}
