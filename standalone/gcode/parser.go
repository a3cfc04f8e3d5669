package gcode

import "errors"

var (
	ErrMissingCommand = errors.New("missing command letter")
	ErrMissingNumber  = errors.New("missing command number")
	ErrBadParameter   = errors.New("malformed parameter")
)

// Parser turns console lines into commands
type Parser struct{}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses a single line. Blank lines return a nil command; comment-only
// lines return a command with Type 0.
func (p *Parser) ParseLine(line string) (*Command, error) {
	if len(line) == 0 {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	i := 0
	// Skip whitespace
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}

	if i >= len(line) {
		return nil, nil
	}

	// Check for comment
	if line[i] == ';' || line[i] == '(' {
		cmd.Comment = line[i:]
		return cmd, nil
	}

	// Parse command type (G, M)
	c := toUpper(line[i])
	if c != 'G' && c != 'M' {
		return nil, ErrMissingCommand
	}
	cmd.Type = c
	i++

	num, newPos := parseInt(line, i)
	if newPos <= i {
		return nil, ErrMissingNumber
	}
	cmd.Number = num
	i = newPos

	// Parse parameters
	for i < len(line) {
		// Skip whitespace
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}

		if i >= len(line) {
			break
		}

		// Check for comment
		if line[i] == ';' || line[i] == '(' {
			cmd.Comment = line[i:]
			break
		}

		if !isLetter(line[i]) {
			return nil, ErrBadParameter
		}
		letter := toUpper(line[i])
		i++

		// A bare letter is a flag, e.g. the axis list of M18
		value, newPos := parseFloat(line, i)
		if newPos > i {
			i = newPos
		} else {
			value = 0
		}
		// Words may run together ("G1A5B6"), anything else after a value is malformed
		if i < len(line) && !isLetter(line[i]) && line[i] != ' ' && line[i] != '\t' && line[i] != ';' && line[i] != '(' {
			return nil, ErrBadParameter
		}
		cmd.Parameters[letter] = value
	}

	return cmd, nil
}

// parseInt parses an integer from the string starting at pos
func parseInt(s string, pos int) (int, int) {
	if pos >= len(s) {
		return 0, pos
	}

	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	start := pos
	value := 0

	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		value = value*10 + int(s[pos]-'0')
		pos++
	}

	if pos == start {
		return 0, start - 1 // No digits found
	}

	if negative {
		value = -value
	}

	return value, pos
}

// parseFloat parses a floating-point number from the string starting at pos
func parseFloat(s string, pos int) (float64, int) {
	if pos >= len(s) {
		return 0, pos
	}

	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	start := pos
	intPart := 0
	fracPart := 0.0
	fracDigits := 0

	// Parse integer part
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		intPart = intPart*10 + int(s[pos]-'0')
		pos++
	}

	// Parse fractional part
	if pos < len(s) && s[pos] == '.' {
		pos++
		fracStart := pos
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			fracPart = fracPart*10.0 + float64(s[pos]-'0')
			pos++
		}
		fracDigits = pos - fracStart
	}

	if pos == start || (pos == start+1 && s[start] == '.') {
		return 0, start - 1 // No valid number found
	}

	// Combine integer and fractional parts
	value := float64(intPart)
	if fracDigits > 0 {
		divisor := 1.0
		for i := 0; i < fracDigits; i++ {
			divisor *= 10.0
		}
		value += fracPart / divisor
	}

	if negative {
		value = -value
	}

	return value, pos
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
