// Package protocol turns console commands and bus register transactions
// into control store operations. It owns no transport; the console shell and
// the bus target driver call into it.
package protocol

import (
	"io"
	"strings"

	"powerctl-go/errcode"
	"powerctl-go/internal/control"
	"powerctl-go/internal/supply"
	"powerctl-go/x/conv"
)

// Standby is the part of the standby controller the console needs.
type Standby interface {
	Enter() error
	InStandby() bool
}

type Server struct {
	store   *control.Store
	standby Standby

	// Verbose prints the command list for unknown commands.
	Verbose bool

	// addr is the addressed bus slot. Only Transaction touches it, and
	// transactions are serialized by the bus peripheral.
	addr supply.ID
}

func New(store *control.Store, standby Standby) *Server {
	return &Server{store: store, standby: standby}
}

const helpText = "commands:\n" +
	"  enable|en NAME...   request supplies on\n" +
	"  disable|dis NAME... request supplies off\n" +
	"  status NAME...      show control records\n" +
	"  standby             enter low-power standby\n" +
	"  help                this text\n" +
	"supplies: 5VA 5VB 3VA 3VB N12 (or 1..5)\n"

// resolve accepts a supply name in any case or its digit alias.
func resolve(arg string) (supply.ID, bool) {
	if len(arg) == 1 && arg[0] >= '1' && arg[0] <= '0'+supply.Count {
		return supply.FromByte(arg[0] - '0'), true
	}
	return supply.Lookup(arg)
}

// Command executes one tokenized console line. Problems are reported on w
// and returned as an errcode; none of them is fatal.
func (s *Server) Command(w io.Writer, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	switch strings.ToLower(argv[0]) {
	case "enable", "en":
		return s.request(w, argv[1:], true)
	case "disable", "dis":
		return s.request(w, argv[1:], false)
	case "status":
		return s.status(w, argv[1:])
	case "standby":
		if s.standby == nil {
			return errcode.NotProbed
		}
		if s.standby.InStandby() {
			return errcode.InStandby
		}
		io.WriteString(w, "entering standby\n")
		return s.standby.Enter()
	case "help", "?":
		io.WriteString(w, helpText)
		return nil
	default:
		if s.Verbose {
			io.WriteString(w, helpText)
		}
		return errcode.UnknownCommand
	}
}

func (s *Server) request(w io.Writer, names []string, on bool) error {
	if len(names) == 0 {
		return errcode.MissingArgument
	}
	var first error
	for _, name := range names {
		id, ok := resolve(name)
		if !ok {
			unknown(w, name)
			if first == nil {
				first = errcode.UnknownSupply
			}
			continue
		}
		_ = s.store.Request(id, on)
	}
	return first
}

func (s *Server) status(w io.Writer, names []string) error {
	if len(names) == 0 {
		return errcode.MissingArgument
	}
	var first error
	for _, name := range names {
		id, ok := resolve(name)
		if !ok {
			unknown(w, name)
			if first == nil {
				first = errcode.UnknownSupply
			}
			continue
		}
		writeStatus(w, id, s.store.Status(id))
	}
	return first
}

func unknown(w io.Writer, name string) {
	io.WriteString(w, "unknown supply: ")
	io.WriteString(w, name)
	io.WriteString(w, "\n")
}

// writeStatus prints e.g. "5VA requested=on good=no latched=on [0x05]".
func writeStatus(w io.Writer, id supply.ID, st control.Status) {
	var buf [64]byte
	var hx [2]byte
	b := append(buf[:0], id.String()...)
	b = append(b, " requested="...)
	b = appendOnOff(b, st.Requested())
	b = append(b, " good="...)
	b = appendYesNo(b, st.PowerGood())
	b = append(b, " latched="...)
	b = appendOnOff(b, st.Latched())
	b = append(b, " [0x"...)
	b = append(b, conv.ByteHex(hx[:], byte(st))...)
	b = append(b, "]\n"...)
	w.Write(b)
}

func appendOnOff(b []byte, v bool) []byte {
	if v {
		return append(b, "on"...)
	}
	return append(b, "off"...)
}

func appendYesNo(b []byte, v bool) []byte {
	if v {
		return append(b, "yes"...)
	}
	return append(b, "no"...)
}

// Transaction handles one completed bus transaction. rx holds the bytes the
// controller wrote; tx[0], if present, is loaded with the status of the
// addressed slot for the next read. It runs in interrupt context.
//
//	[]            read: status of the current slot
//	[addr]        select slot
//	[addr, data]  select slot, then write; only bit 0 of data is applied
func (s *Server) Transaction(rx, tx []byte) {
	if len(rx) > 0 {
		s.addr = supply.FromByte(rx[0])
		if len(rx) > 1 && s.addr.Valid() {
			_ = s.store.WriteBus(s.addr, rx[1])
		}
	}
	if len(tx) > 0 {
		tx[0] = byte(s.store.Status(s.addr))
	}
}

// Address is the currently addressed bus slot.
func (s *Server) Address() supply.ID { return s.addr }
