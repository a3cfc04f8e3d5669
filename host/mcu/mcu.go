package mcu

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"astrostepper/host/serial"
)

const DefaultTimeout = 2 * time.Second

var (
	ErrNotConnected = errors.New("not connected")
	ErrTimeout      = errors.New("timed out waiting for reply")
)

// CommandError is an "Error: ..." reply from the firmware
type CommandError struct {
	Line string
	Msg  string
}

func (e *CommandError) Error() string {
	return e.Line + ": " + e.Msg
}

// MCU is a line-oriented client for the firmware console.
// Each command is answered by zero or more text lines followed by "ok",
// or by a single "Error: ..." line.
type MCU struct {
	mu      sync.Mutex
	port    serial.Port
	pending []byte
	buf     []byte
	Timeout time.Duration

	// Lines received outside a reply, such as the startup banner
	Unsolicited []string
}

// NewMCU creates a new, unconnected client
func NewMCU() *MCU {
	return &MCU{
		buf:     make([]byte, 256),
		Timeout: DefaultTimeout,
	}
}

// Connect opens device with the default console settings
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens the serial port described by cfg
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach uses an already open port
func (m *MCU) Attach(port serial.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.port = port
	m.pending = m.pending[:0]
}

// IsConnected reports whether a port is attached
func (m *MCU) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port != nil
}

// Close closes the port
func (m *MCU) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return nil
	}
	err := m.port.Close()
	m.port = nil
	return err
}

// Send writes one command line and waits for its reply. The text lines
// before "ok" are returned. An "Error:" reply is returned as a *CommandError.
func (m *MCU) Send(line string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port == nil {
		return nil, ErrNotConnected
	}

	line = strings.TrimSpace(line)
	if _, err := m.port.Write([]byte(line + "\n")); err != nil {
		return nil, fmt.Errorf("failed to send %q: %w", line, err)
	}

	deadline := time.Now().Add(m.Timeout)
	var reply []string
	for {
		text, err := m.readLine(deadline)
		if err != nil {
			return reply, fmt.Errorf("%s: %w", line, err)
		}
		switch {
		case text == "ok":
			return reply, nil
		case strings.HasPrefix(text, "Error:"):
			return reply, &CommandError{Line: line, Msg: strings.TrimSpace(strings.TrimPrefix(text, "Error:"))}
		case isBanner(text) && len(reply) == 0:
			m.Unsolicited = append(m.Unsolicited, text)
		default:
			reply = append(reply, text)
		}
	}
}

// readLine returns the next non-empty line, reading from the port until
// one is complete or the deadline passes. Reads returning no data (serial
// read timeouts) are retried.
func (m *MCU) readLine(deadline time.Time) (string, error) {
	for {
		if i := bytes.IndexByte(m.pending, '\n'); i >= 0 {
			text := strings.TrimSpace(string(m.pending[:i]))
			m.pending = append(m.pending[:0], m.pending[i+1:]...)
			if text == "" {
				continue
			}
			return text, nil
		}

		if time.Now().After(deadline) {
			return "", ErrTimeout
		}

		n, err := m.port.Read(m.buf)
		if n > 0 {
			m.pending = append(m.pending, m.buf[:n]...)
		}
		if err != nil {
			return "", err
		}
	}
}

// Positions sends M114 and returns the step position of each axis
func (m *MCU) Positions() (map[byte]int64, error) {
	reply, err := m.Send("M114")
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, fmt.Errorf("M114: empty reply")
	}

	positions := make(map[byte]int64)
	for _, field := range strings.Fields(reply[0]) {
		if len(field) < 3 || field[1] != ':' {
			return nil, fmt.Errorf("M114: bad field %q", field)
		}
		pos, err := strconv.ParseInt(field[2:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("M114: bad position %q: %w", field, err)
		}
		positions[field[0]] = pos
	}
	return positions, nil
}

// Info sends M115 and returns its KEY:value fields
func (m *MCU) Info() (map[string]string, error) {
	reply, err := m.Send("M115")
	if err != nil {
		return nil, err
	}

	info := make(map[string]string)
	for _, text := range reply {
		for _, field := range strings.Fields(text) {
			key, value, ok := strings.Cut(field, ":")
			if ok {
				info[key] = value
			}
		}
	}
	return info, nil
}

// WaitIdle polls M122 until no motor reports running=true
func (m *MCU) WaitIdle(poll time.Duration, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		reply, err := m.Send("M122")
		if err != nil {
			return err
		}
		busy := false
		for _, text := range reply {
			if strings.Contains(text, "running=true") {
				busy = true
				break
			}
		}
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(poll)
	}
}

func isBanner(text string) bool {
	return strings.HasSuffix(text, " ready")
}
