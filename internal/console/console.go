// Package console is the line-oriented operator shell on the console UART.
// It assembles bytes into lines, splits them into argv and hands them to a
// command handler; the handler's output goes back through a CRLF printer.
package console

import (
	"io"

	"github.com/google/shlex"

	"powerctl-go/internal/hw"
)

// Handler executes one command line. The returned error is for logging
// only; anything the operator should see is written to w.
type Handler func(w io.Writer, argv []string) error

const (
	DefaultMaxLine = 80
	Prompt         = "> "
)

// crlf expands "\n" to "\r\n" for terminal output.
type crlf struct{ w io.Writer }

func (c crlf) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if b != '\n' {
			continue
		}
		if _, err := c.w.Write(p[start:i]); err != nil {
			return start, err
		}
		if _, err := c.w.Write([]byte("\r\n")); err != nil {
			return i, err
		}
		start = i + 1
	}
	if start < len(p) {
		if _, err := c.w.Write(p[start:]); err != nil {
			return start, err
		}
	}
	return len(p), nil
}

// NewPrinter wraps w so that line feeds go out as CRLF.
func NewPrinter(w io.Writer) io.Writer { return crlf{w} }

type Shell struct {
	port   hw.Serial
	out    io.Writer
	handle Handler

	line    []byte
	max     int
	dropped bool // current line overflowed
	echo    bool
	lastCR  bool // previous byte was '\r'
}

type Options struct {
	MaxLine int  // 0 selects DefaultMaxLine
	Echo    bool // echo received characters
}

func New(port hw.Serial, h Handler, o Options) *Shell {
	if o.MaxLine <= 0 {
		o.MaxLine = DefaultMaxLine
	}
	return &Shell{
		port:   port,
		out:    NewPrinter(port),
		handle: h,
		line:   make([]byte, 0, o.MaxLine),
		max:    o.MaxLine,
		echo:   o.Echo,
	}
}

// Writer is the shell's CRLF output.
func (s *Shell) Writer() io.Writer { return s.out }

// Poll consumes every byte already buffered on the port and runs the
// commands completed by them. It never blocks. It returns the number of
// commands dispatched.
func (s *Shell) Poll() int {
	n := 0
	for s.port.Buffered() > 0 {
		b, err := s.port.ReadByte()
		if err != nil {
			break
		}
		if s.feed(b) {
			n++
		}
	}
	return n
}

// feed processes one byte and reports whether a command was dispatched.
func (s *Shell) feed(b byte) bool {
	cr := b == '\r'
	defer func() { s.lastCR = cr }()
	if b == '\n' && s.lastCR {
		return false // second half of CRLF
	}
	if cr {
		b = '\n'
	}
	switch {
	case b == '\n':
		if s.echo {
			io.WriteString(s.out, "\n")
		}
		ran := s.dispatch()
		if s.echo {
			io.WriteString(s.out, Prompt)
		}
		return ran
	case b == 0x08 || b == 0x7f: // backspace, delete
		if len(s.line) > 0 {
			s.line = s.line[:len(s.line)-1]
			if s.echo {
				io.WriteString(s.out, "\b \b")
			}
		}
	case b < 0x20 || b > 0x7e:
		// Control and non-ASCII bytes (line noise, a garbled wake byte).
	case len(s.line) >= s.max:
		s.dropped = true
	default:
		s.line = append(s.line, b)
		if s.echo {
			s.out.Write([]byte{b})
		}
	}
	return false
}

func (s *Shell) dispatch() bool {
	line, dropped := string(s.line), s.dropped
	s.line, s.dropped = s.line[:0], false
	if dropped {
		io.WriteString(s.out, "line too long\n")
		return false
	}
	argv, err := shlex.Split(line)
	if err != nil {
		io.WriteString(s.out, "parse error: ")
		io.WriteString(s.out, err.Error())
		io.WriteString(s.out, "\n")
		return false
	}
	if len(argv) == 0 {
		return false
	}
	if err := s.handle(s.out, argv); err != nil {
		println("[console]", argv[0]+":", err.Error())
	}
	return true
}
