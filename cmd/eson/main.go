// eson - ESON codec CLI tool
//
// Usage:
//
//	eson fmt [flags] [file]        Re-encode ESON (tags kept as written)
//	eson to-json [flags] [file]    Drop tags and print plain JSON
//	eson from-yaml [flags] [file]  Convert YAML (local tags become ESON tags)
//	eson to-yaml [flags] [file]    Convert ESON to YAML
//	eson hash [flags] [file]       Print the BLAKE3 hash of the canonical form
//	eson frame [flags] [file]      Wrap whitespace-separated documents in frames
//	eson unframe [flags] [file]    Print the documents of a frame stream
//	eson version                   Print version info
//
// If no file is given, or the file is "-", reads from stdin. Output is
// indented when stdout is a terminal.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/Neumenon/eson/bridge"
	"github.com/Neumenon/eson/eson"
	_ "github.com/Neumenon/eson/eson/builtin"
	esonzap "github.com/Neumenon/eson/log/zap"
	"github.com/Neumenon/eson/stream"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "eson: %v\n", err)
		os.Exit(1)
	}
}

// command holds the parsed flags of one invocation.
type command struct {
	name  string
	in    io.Reader
	out   io.Writer
	log   *zap.Logger
	enc   eson.EncodeOptions
	dec   eson.DecodeOptions
	files []string

	comments bool
	encoding stream.Encoding
	crc      bool
	hash     bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	name := args[0]
	switch name {
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "eson %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	}

	handler, ok := commands[name]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", name)
	}

	cmd, err := parseFlags(name, args[1:], stdout, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	defer cmd.log.Sync()

	eson.SetLogger(esonzap.New(cmd.log))
	defer eson.SetLogger(nil)

	in := stdin
	if len(cmd.files) > 0 && cmd.files[0] != "-" {
		f, err := os.Open(cmd.files[0])
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		in = f
	}
	cmd.in = in

	if err := handler(cmd); err != nil {
		cmd.log.Debug("command failed", zap.String("command", name), zap.Error(err))
		return err
	}
	return nil
}

var commands = map[string]func(*command) error{
	"fmt":       cmdFmt,
	"to-json":   cmdToJSON,
	"from-yaml": cmdFromYAML,
	"to-yaml":   cmdToYAML,
	"hash":      cmdHash,
	"frame":     cmdFrame,
	"unframe":   cmdUnframe,
}

func parseFlags(name string, args []string, stdout, stderr io.Writer) (*command, error) {
	var (
		configPath string
		indent     int
		compact    bool
		sortKeys   bool
		ascii      bool
		strict     bool
		strategy   string
		encName    string
		verbose    bool
	)
	cmd := &command{name: name, out: stdout}

	flagSet := pflag.NewFlagSet("eson "+name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "YAML file of encode defaults")
	flagSet.IntVar(&indent, "indent", 2, "indent width for pretty output (0 puts each item on its own line)")
	flagSet.BoolVar(&compact, "compact", false, "single-line output even on a terminal")
	flagSet.BoolVar(&sortKeys, "sort-keys", false, "sort object keys")
	flagSet.BoolVar(&ascii, "ascii", true, "escape non-ASCII characters")
	flagSet.BoolVar(&strict, "strict", false, "reject NaN and Infinity")
	flagSet.BoolVar(&cmd.comments, "comments", false, "allow // and /* */ comments and trailing commas")
	flagSet.StringVar(&strategy, "tags", "struct", "tag handling when decoding: struct, registry, ignore or error")
	flagSet.StringVar(&encName, "enc", "none", "frame compression: none, zstd or lz4")
	flagSet.BoolVar(&cmd.crc, "crc", false, "add a CRC-32 to each frame")
	flagSet.BoolVar(&cmd.hash, "hash", false, "add the document hash to each frame")
	flagSet.BoolVarP(&verbose, "verbose", "V", false, "debug logging")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "usage: eson %s [flags] [file]\n\n", name)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	cmd.files = flagSet.Args()
	cmd.log = newLogger(stderr, verbose)

	cmd.enc = eson.DefaultEncodeOptions()
	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg.apply(&cmd.enc)
		cmd.log.Debug("loaded config", zap.String("path", configPath))
	}
	if flagSet.Changed("sort-keys") {
		cmd.enc.SortKeys = sortKeys
	}
	if flagSet.Changed("ascii") {
		cmd.enc.EnsureASCII = ascii
	}
	if flagSet.Changed("strict") {
		cmd.enc.AllowNaN = !strict
	}
	switch {
	case compact:
		cmd.enc.Pretty, cmd.enc.Indent = false, ""
	case flagSet.Changed("indent"):
		cmd.enc = cmd.enc.WithIndent(indent)
	case cmd.enc.Indent == "" && !cmd.enc.Pretty && isTerminal(stdout):
		cmd.enc = cmd.enc.WithIndent(indent)
	}

	ts, err := parseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	cmd.dec = eson.DecodeOptions{TagStrategy: ts}

	if cmd.encoding, err = stream.ParseEncoding(encName); err != nil {
		return nil, err
	}
	return cmd, nil
}

func parseStrategy(name string) (eson.Strategy, error) {
	switch name {
	case "struct":
		return eson.StructStrategy, nil
	case "registry":
		return nil, nil
	case "ignore":
		return eson.IgnoreStrategy, nil
	case "error":
		return eson.ErrorStrategy, nil
	default:
		return nil, fmt.Errorf("unknown tag strategy %q", name)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newLogger logs human-readable lines on a terminal and JSON otherwise.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	var encoder zapcore.Encoder
	if isTerminal(w) {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level))
}

// ============================================================
// Commands
// ============================================================

func (c *command) readInput() (string, error) {
	data, err := io.ReadAll(c.in)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if c.comments {
		data = jsonc.ToJSON(data)
	}
	return string(data), nil
}

func (c *command) decode() (*eson.Value, error) {
	text, err := c.readInput()
	if err != nil {
		return nil, err
	}
	return eson.DecodeWithOptions(text, c.dec)
}

func (c *command) print(v any) error {
	text, err := eson.EncodeWithOptions(v, c.enc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, text)
	return err
}

func cmdFmt(c *command) error {
	v, err := c.decode()
	if err != nil {
		return err
	}
	return c.print(v)
}

func cmdToJSON(c *command) error {
	c.dec.TagStrategy = eson.IgnoreStrategy
	return cmdFmt(c)
}

func cmdFromYAML(c *command) error {
	data, err := io.ReadAll(c.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	v, err := bridge.UnmarshalYAML(data)
	if err != nil {
		return err
	}
	return c.print(v)
}

func cmdToYAML(c *command) error {
	v, err := c.decode()
	if err != nil {
		return err
	}
	out, err := bridge.MarshalYAML(v)
	if err != nil {
		return err
	}
	_, err = c.out.Write(out)
	return err
}

func cmdHash(c *command) error {
	v, err := c.decode()
	if err != nil {
		return err
	}
	h, err := stream.DocumentHash(v, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, stream.HashToHex(h))
	return err
}

func cmdFrame(c *command) error {
	text, err := c.readInput()
	if err != nil {
		return err
	}
	dec := eson.NewDecoder(c.dec)
	var docs []*eson.Value
	for i := skipSpace(text, 0); i < len(text); i = skipSpace(text, i) {
		v, end, err := dec.DecodePrefix(text, i)
		if err != nil {
			return fmt.Errorf("document %d: %w", len(docs), err)
		}
		docs = append(docs, v)
		i = end
	}

	opts := []stream.WriterOption{
		stream.WithEncoding(c.encoding),
		stream.WithEncodeOptions(c.enc),
	}
	if c.crc {
		opts = append(opts, stream.WithCRC())
	}
	if c.hash {
		opts = append(opts, stream.WithHash())
	}
	w := stream.NewWriter(c.out, opts...)
	for i, v := range docs {
		if i == len(docs)-1 {
			err = w.WriteFinal(v)
		} else {
			err = w.WriteValue(v)
		}
		if err != nil {
			return err
		}
	}
	c.log.Info("framed documents", zap.Int("count", len(docs)), zap.Stringer("enc", c.encoding))
	return nil
}

func cmdUnframe(c *command) error {
	r := stream.NewReader(c.in, stream.WithDecodeOptions(c.dec))
	for {
		v, f, err := r.NextValue()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.print(v); err != nil {
			return fmt.Errorf("frame %d: %w", f.Seq, err)
		}
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && strings.IndexByte(" \t\n\r", s[i]) >= 0 {
		i++
	}
	return i
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `eson - ESON codec CLI tool

Usage:
  eson fmt [flags] [file]        Re-encode ESON (tags kept as written)
  eson to-json [flags] [file]    Drop tags and print plain JSON
  eson from-yaml [flags] [file]  Convert YAML (local tags become ESON tags)
  eson to-yaml [flags] [file]    Convert ESON to YAML
  eson hash [flags] [file]       Print the BLAKE3 hash of the canonical form
  eson frame [flags] [file]      Wrap whitespace-separated documents in frames
  eson unframe [flags] [file]    Print the documents of a frame stream
  eson version                   Print version info

Run "eson <command> --help" for the flags of a command.
`)
}
