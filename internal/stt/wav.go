package stt

import (
	"encoding/binary"
	"io"
	"os"
)

// wavDuration reads the duration in seconds from a RIFF/WAVE file header.
// Returns 0 for anything it cannot parse; callers fall back to segment
// timing, so a non-WAV upload is not an error here.
func wavDuration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return 0
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0
	}

	var byteRate uint32
	var dataSize uint32

	// Walk chunks until both fmt and data have been seen.
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			return 0
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return 0
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(f, fmtChunk[:]); err != nil {
				return 0
			}
			byteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])
			if size > 16 {
				if _, err := f.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return 0
				}
			}
		case "data":
			dataSize = size
			if byteRate > 0 {
				return float64(dataSize) / float64(byteRate)
			}
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0
			}
		default:
			// Chunk sizes are padded to even byte counts.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return 0
			}
		}

		if byteRate > 0 && dataSize > 0 {
			return float64(dataSize) / float64(byteRate)
		}
	}
}
