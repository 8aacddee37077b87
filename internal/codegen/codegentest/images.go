package codegentest

import (
	"encoding/binary"
	"hash/crc32"
)

// PNGHeader returns a PNG signature and IHDR chunk declaring a width x height
// 8-bit grayscale image, with no pixel data after it.
func PNGHeader(width, height uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:8], width)
	binary.BigEndian.PutUint32(ihdr[8:12], height)
	ihdr[12] = 8

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}
