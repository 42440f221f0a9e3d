package cobs

// Decoder is a streaming COBS frame extractor. Feed arbitrary chunks of
// incoming bytes with Decode; complete frame bodies (decoded, delimiters
// stripped) are returned as soon as their closing delimiter is seen.
// Partial frames remain buffered across calls.
//
// The zero value is ready to use.
type Decoder struct {
	pending []byte
	started bool
}

// Decode feeds data into the decoder and returns the decoded body of
// every complete frame found. A malformed frame body (a code byte whose
// declared segment length runs past the buffered bytes) is discarded
// silently; scanning resumes at the next delimiter.
func (d *Decoder) Decode(data []byte) [][]byte {
	var out [][]byte
	for _, b := range data {
		if b != 0x00 {
			if d.started {
				d.pending = append(d.pending, b)
				if len(d.pending) > MaxBufferedBytes {
					d.pending = d.pending[len(d.pending)-MaxBufferedBytes:]
				}
			}
			continue
		}
		if !d.started {
			d.started = true
			d.pending = d.pending[:0]
			continue
		}
		body := d.pending
		d.pending = nil
		if decoded, err := Decode(body); err == nil {
			out = append(out, decoded)
		}
		// This same delimiter doubles as the opening delimiter of the
		// next frame; remain started with an empty pending buffer.
	}
	return out
}

// Reset drops any buffered, not-yet-delimited bytes.
func (d *Decoder) Reset() {
	d.pending = nil
	d.started = false
}

// BufferSize reports the number of bytes currently held, awaiting a
// closing delimiter.
func (d *Decoder) BufferSize() int {
	return len(d.pending)
}
