package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/eson/eson"
)

// Reader reads framed documents from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	verifyHash bool
	opts       eson.DecodeOptions

	started bool
	lastSeq uint64
	final   bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size, stored and uncompressed
// (default: 64 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithoutCRCVerification skips CRC checks.
func WithoutCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
	}
}

// WithoutHashVerification makes NextValue skip the document hash check.
func WithoutHashVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyHash = false
	}
}

// WithDecodeOptions sets the options NextValue decodes with.
func WithDecodeOptions(opts eson.DecodeOptions) ReaderOption {
	return func(r *Reader) {
		r.opts = opts
	}
}

// NewReader creates a frame reader. CRC and hash verification are on.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true,
		verifyHash: true,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads the next frame and returns it with the payload
// decompressed. It returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	line, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	h, err := r.parseHeader(line)
	if err != nil {
		return nil, err
	}
	f := &h.frame

	if r.final {
		return nil, ErrAfterFinal
	}
	if r.started && f.Seq <= r.lastSeq {
		return nil, fmt.Errorf("%w: %d after %d", ErrSequence, f.Seq, r.lastSeq)
	}

	stored := make([]byte, h.length)
	if _, err := io.ReadFull(r.r, stored); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	// Trailing newline is optional at EOF.
	if b, err := r.r.ReadByte(); err == nil && b != '\n' {
		r.r.UnreadByte()
	}

	if r.verifyCRC && f.CRC != nil {
		if got := ComputeCRC(stored); got != *f.CRC {
			return nil, &CRCMismatchError{Seq: f.Seq, Expected: *f.CRC, Got: got}
		}
	}

	raw := h.length
	if f.Encoding != EncodingNone {
		raw = h.raw
	}
	f.Payload, err = decompress(stored, f.Encoding, raw)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Seq: f.Seq}
	}

	r.started = true
	r.lastSeq = f.Seq
	r.final = f.Final
	eson.CurrentLogger().Debug("stream: frame read", eson.Fields{
		"seq": f.Seq,
		"len": h.length,
		"raw": len(f.Payload),
		"enc": f.Encoding.String(),
	})
	return f, nil
}

// NextValue reads the next frame and decodes its payload. A hash in the
// header is checked against the decoded document.
func (r *Reader) NextValue() (*eson.Value, *Frame, error) {
	f, err := r.Next()
	if err != nil {
		return nil, nil, err
	}
	v, err := eson.DecodeWithOptions(string(f.Payload), r.opts)
	if err != nil {
		return nil, f, fmt.Errorf("decode frame %d: %w", f.Seq, err)
	}
	if r.verifyHash && f.Hash != nil {
		got, err := DocumentHash(v, r.opts.Registry)
		if err != nil {
			return nil, f, fmt.Errorf("hash frame %d: %w", f.Seq, err)
		}
		if got != *f.Hash {
			eson.CurrentLogger().Warn("stream: document hash mismatch", eson.Fields{"seq": f.Seq})
			return nil, f, &HashMismatchError{Seq: f.Seq, Expected: *f.Hash, Got: got}
		}
	}
	return v, f, nil
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

type header struct {
	frame  Frame
	length int
	raw    int
}

func (r *Reader) parseHeader(line string) (*header, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@frame{") || !strings.HasSuffix(line, "}") {
		return nil, &ParseError{Reason: fmt.Sprintf("malformed frame header %q", line), Seq: r.lastSeq}
	}
	content := line[len("@frame{") : len(line)-1]

	h := &header{frame: Frame{Version: Version}, length: -1}
	for _, pair := range strings.Fields(content) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case "v":
			var v uint64
			v, err = strconv.ParseUint(val, 10, 8)
			if err == nil && uint8(v) != Version {
				err = fmt.Errorf("unsupported version %d", v)
			}
			h.frame.Version = uint8(v)
		case "seq":
			h.frame.Seq, err = strconv.ParseUint(val, 10, 64)
		case "len":
			h.length, err = r.size(val)
		case "raw":
			h.raw, err = r.size(val)
		case "enc":
			h.frame.Encoding, err = ParseEncoding(val)
		case "crc":
			var c uint64
			c, err = strconv.ParseUint(val, 16, 32)
			if err == nil && len(val) != 8 {
				err = errors.New("want 8 hex digits")
			}
			crc := uint32(c)
			h.frame.CRC = &crc
		case "hash":
			sum, ok := HexToHash(strings.TrimPrefix(val, "blake3:"))
			if !ok || !strings.HasPrefix(val, "blake3:") {
				err = errors.New("want blake3:<64 hex digits>")
			}
			h.frame.Hash = &sum
		case "final":
			h.frame.Final = val == "true" || val == "1"
		}
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid %s %q: %v", key, val, err), Seq: h.frame.Seq}
		}
	}
	if h.length < 0 {
		return nil, &ParseError{Reason: "missing len", Seq: h.frame.Seq}
	}
	return h, nil
}

func (r *Reader) size(val string) (int, error) {
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, err
	}
	if int(n) > r.maxPayload {
		return 0, fmt.Errorf("payload too large: %d > %d", n, r.maxPayload)
	}
	return int(n), nil
}
