package niimbot

import "encoding/binary"

// DefaultDarkThreshold is the gray level below which a pixel prints.
const DefaultDarkThreshold = 128

// rowHeaderLen is row(2) + left count + right count + repeat(2).
const rowHeaderLen = 6

// EncodeRow builds the payload of one PrintBitmapRow packet.
//
// Pixels are packed 1 bit per pixel, MSB first, 1 meaning dark (value
// below threshold). The header carries the row index, the dark-pixel
// counts of the left and right halves (split at len(pixels)/2) and a
// repeat count of 1. A trailing partial byte is zero padded.
func EncodeRow(index uint16, pixels []uint8, threshold uint8) []byte {
	width := len(pixels)
	mid := width / 2
	packed := make([]byte, (width+7)/8)

	var left, right int
	for x, p := range pixels {
		if p >= threshold {
			continue
		}
		packed[x/8] |= 0x80 >> (x % 8)
		if x < mid {
			left++
		} else {
			right++
		}
	}

	out := make([]byte, rowHeaderLen, rowHeaderLen+len(packed))
	binary.BigEndian.PutUint16(out[0:2], index)
	out[2] = uint8(left)
	out[3] = uint8(right)
	binary.BigEndian.PutUint16(out[4:6], 1)
	return append(out, packed...)
}
