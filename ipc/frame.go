// Package ipc implements length-prefixed msgpack framing for the embedding
// boundary: RuntimeCommand frames in, Snapshot frames out.
package ipc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wod-wiki/wodwiki/display"
	"github.com/wod-wiki/wodwiki/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error is fatal (terminate the embedding session).
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
// Wraps the reader with bufio.Reader to reduce syscall overhead
// on unbuffered sources (e.g., OS pipes from an embedding host).
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameDecoder{reader: br}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])

	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// EncodeFrame encodes a payload with a 4-byte big-endian length prefix.
// This is the public encoder counterpart to FrameDecoder.ReadFrame.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

// DecodeCommand decodes a frame payload as a RuntimeCommand.
// Commands flow host -> runtime.
func DecodeCommand(payload []byte) (*types.RuntimeCommand, error) {
	var cmd types.RuntimeCommand
	if err := msgpack.Unmarshal(payload, &cmd); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode runtime command",
			Err:  err,
		}
	}
	return &cmd, nil
}

// EncodeCommand encodes a RuntimeCommand as a length-prefixed msgpack frame.
func EncodeCommand(cmd *types.RuntimeCommand) ([]byte, error) {
	payload, err := msgpack.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode runtime command: %w", err)
	}
	return EncodeFrame(payload), nil
}

// DecodeSnapshot decodes a frame payload as a display snapshot.
// Snapshots flow runtime -> host.
func DecodeSnapshot(payload []byte) (display.Snapshot, error) {
	snap, err := display.DecodeMsgpack(payload)
	if err != nil {
		return display.Snapshot{}, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode snapshot",
			Err:  err,
		}
	}
	return snap, nil
}

// EncodeSnapshot encodes a display snapshot as a length-prefixed msgpack frame.
func EncodeSnapshot(snap display.Snapshot) ([]byte, error) {
	payload, err := display.EncodeMsgpack(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return EncodeFrame(payload), nil
}
