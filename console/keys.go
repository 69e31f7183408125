// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package console

import (
	"bufio"
	"io"
	"os"

	log "github.com/hpe-storage/service-host-libs/logger"
	"golang.org/x/crypto/ssh/terminal"
)

// KeyReader returns keys without blocking
type KeyReader interface {
	// ReadKey returns the next pending key, or ok == false when nothing is pending.  io.EOF is
	// returned once the input is exhausted.
	ReadKey() (key rune, ok bool, err error)
	Close() error
}

// TerminalKeyReader reads single keys from a terminal in raw mode.  Input that is not a
// terminal is read as is.
type TerminalKeyReader struct {
	fd    int
	state *terminal.State
	keys  chan rune
	errs  chan error
}

// NewTerminalKeyReader starts reading keys from f, switching it to raw mode when it is a terminal
func NewTerminalKeyReader(f *os.File) (*TerminalKeyReader, error) {
	r := &TerminalKeyReader{fd: int(f.Fd())}
	if terminal.IsTerminal(r.fd) {
		state, err := terminal.MakeRaw(r.fd)
		if err != nil {
			return nil, err
		}
		r.state = state
	}
	r.start(f)
	return r, nil
}

// NewKeyReader reads keys from any reader, one rune per key
func NewKeyReader(in io.Reader) *TerminalKeyReader {
	r := &TerminalKeyReader{fd: -1}
	r.start(in)
	return r
}

func (r *TerminalKeyReader) start(in io.Reader) {
	r.keys = make(chan rune, 64)
	r.errs = make(chan error, 1)
	// The reader goroutine stays blocked on a console read until the process exits
	go func() {
		buffered := bufio.NewReader(in)
		for {
			key, _, err := buffered.ReadRune()
			if err != nil {
				r.errs <- err
				return
			}
			r.keys <- key
		}
	}()
}

// ReadKey implements KeyReader
func (r *TerminalKeyReader) ReadKey() (rune, bool, error) {
	select {
	case key := <-r.keys:
		return key, true, nil
	default:
	}
	select {
	case err := <-r.errs:
		// keep reporting the error on later calls
		r.errs <- err
		// keys are always queued before the error
		select {
		case key := <-r.keys:
			return key, true, nil
		default:
		}
		return 0, false, err
	default:
		return 0, false, nil
	}
}

// Close restores the terminal mode
func (r *TerminalKeyReader) Close() error {
	if r.state == nil {
		return nil
	}
	state := r.state
	r.state = nil
	if err := terminal.Restore(r.fd, state); err != nil {
		log.Warnf("unable to restore the terminal, err=%v", err)
		return err
	}
	return nil
}
