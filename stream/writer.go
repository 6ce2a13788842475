package stream

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/eson/eson"
)

// Writer writes framed documents to an io.Writer.
type Writer struct {
	w        io.Writer
	encoding Encoding
	withCRC  bool
	withHash bool
	opts     eson.EncodeOptions
	seq      uint64
	final    bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithEncoding compresses payloads. Payloads that do not shrink are
// stored uncompressed.
func WithEncoding(e Encoding) WriterOption {
	return func(w *Writer) {
		w.encoding = e
	}
}

// WithCRC adds a CRC-32 of the stored bytes to every frame.
func WithCRC() WriterOption {
	return func(w *Writer) {
		w.withCRC = true
	}
}

// WithHash adds the DocumentHash to frames written by WriteValue.
func WithHash() WriterOption {
	return func(w *Writer) {
		w.withHash = true
	}
}

// WithEncodeOptions sets the options WriteValue encodes with.
func WithEncodeOptions(opts eson.EncodeOptions) WriterOption {
	return func(w *Writer) {
		w.opts = opts
	}
}

// NewWriter creates a frame writer. Sequence numbers start at 0.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w, opts: eson.DefaultEncodeOptions()}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// WriteFrame writes f. f.Payload is the uncompressed document; the
// writer's encoding and CRC setting apply on top of f's own fields.
func (w *Writer) WriteFrame(f *Frame) error {
	if w.final {
		return ErrAfterFinal
	}

	enc := f.Encoding
	if enc == EncodingNone {
		enc = w.encoding
	}
	stored, err := compress(f.Payload, enc)
	if errors.Is(err, errIncompressible) {
		stored, enc, err = f.Payload, EncodingNone, nil
	}
	if err != nil {
		return err
	}

	var header strings.Builder
	header.WriteString("@frame{v=")
	if f.Version == 0 {
		header.WriteString(strconv.Itoa(int(Version)))
	} else {
		header.WriteString(strconv.Itoa(int(f.Version)))
	}
	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(f.Seq, 10))
	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(stored)))
	if enc != EncodingNone {
		header.WriteString(" enc=")
		header.WriteString(enc.String())
		header.WriteString(" raw=")
		header.WriteString(strconv.Itoa(len(f.Payload)))
	}

	crc := f.CRC
	if crc == nil && w.withCRC {
		computed := ComputeCRC(stored)
		crc = &computed
	}
	if crc != nil {
		fmt.Fprintf(&header, " crc=%08x", *crc)
	}
	if f.Hash != nil {
		header.WriteString(" hash=blake3:")
		header.WriteString(HashToHex(*f.Hash))
	}
	if f.Final {
		header.WriteString(" final=true")
	}
	header.WriteString("}\n")

	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(stored) > 0 {
		if _, err := w.w.Write(stored); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}

	if f.Seq >= w.seq {
		w.seq = f.Seq + 1
	}
	w.final = f.Final
	eson.CurrentLogger().Debug("stream: frame written", eson.Fields{
		"seq": f.Seq,
		"len": len(stored),
		"raw": len(f.Payload),
		"enc": enc.String(),
	})
	return nil
}

// WriteValue encodes v and writes it as the next frame.
func (w *Writer) WriteValue(v any) error {
	return w.writeValue(v, false)
}

// WriteFinal encodes v and writes it as the last frame of the stream.
func (w *Writer) WriteFinal(v any) error {
	return w.writeValue(v, true)
}

func (w *Writer) writeValue(v any, final bool) error {
	text, err := eson.EncodeWithOptions(v, w.opts)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", w.seq, err)
	}
	f := &Frame{Version: Version, Seq: w.seq, Payload: []byte(text), Final: final}
	if w.withHash {
		h, err := DocumentHash(v, w.opts.Registry)
		if err != nil {
			return fmt.Errorf("hash frame %d: %w", w.seq, err)
		}
		f.Hash = &h
	}
	return w.WriteFrame(f)
}

// Seq returns the sequence number of the next frame.
func (w *Writer) Seq() uint64 {
	return w.seq
}
