// Package encode turns raw file bytes into a text-safe payload that can
// cross the gateway boundary, and back again.
package encode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// ChunkSize is the window the codec processes per call. Large inputs
// are fed through in fixed windows so a single oversized buffer never
// hits one encode call.
const ChunkSize = 32 * 1024

// Encode produces the base64 payload for data. Round-trips exactly
// through Decode for any input, including empty.
func Encode(data []byte) string {
	var b strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	for off := 0; off < len(data); off += ChunkSize {
		end := off + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		enc.Write(data[off:end]) // writes to strings.Builder cannot fail
	}
	enc.Close()
	return b.String()
}

// EncodeFrom streams r through the encoder in ChunkSize windows.
func EncodeFrom(r io.Reader) (string, error) {
	var b strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	if _, err := io.CopyBuffer(enc, r, make([]byte, ChunkSize)); err != nil {
		return "", fmt.Errorf("encode stream: %w", err)
	}
	enc.Close()
	return b.String(), nil
}

// Decode restores the exact original bytes from a payload produced by
// Encode.
func Decode(payload string) ([]byte, error) {
	dec := base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload))
	var out bytes.Buffer
	buf := make([]byte, ChunkSize)
	for {
		n, err := dec.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			return out.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
}
