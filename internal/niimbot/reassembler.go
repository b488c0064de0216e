package niimbot

// Reassemble splits the bytes returned by one receive call into frames.
//
// Bytes are accumulated one at a time. Whenever the accumulator holds at
// least four bytes, starts with the start marker and ends with the end
// marker, a decode is attempted: a valid frame is emitted and the
// accumulator reset; an invalid one is discarded and scanning continues
// with an empty accumulator. There is no backtracking, so a payload that
// happens to contain 0xAA 0xAA can truncate a frame. Every frame in the
// result appears once.
func Reassemble(b []byte) []Frame {
	var (
		frames []Frame
		acc    = make([]byte, 0, 64)
	)
	for _, c := range b {
		acc = append(acc, c)
		n := len(acc)
		if n < 4 ||
			acc[0] != startMarker0 || acc[1] != startMarker1 ||
			acc[n-2] != endMarker0 || acc[n-1] != endMarker1 {
			continue
		}
		if f, err := Decode(acc); err == nil {
			frames = append(frames, f)
		}
		acc = acc[:0]
	}
	return frames
}
