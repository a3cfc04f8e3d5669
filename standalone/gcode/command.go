package gcode

import (
	"math"
	"strconv"
)

// Command is one parsed console line
type Command struct {
	Type       byte             // 'G' or 'M', 0 for a comment-only line
	Number     int              // Command number (e.g. 0 for G0, 114 for M114)
	Parameters map[byte]float64 // Axis letters and S, E, etc.
	Comment    string           // Comment text
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}

// GetSteps returns a parameter rounded to a whole step count
func (cmd *Command) GetSteps(param byte) int64 {
	return int64(math.Round(cmd.Parameters[param]))
}

// Name returns the command word, e.g. "G1"
func (cmd *Command) Name() string {
	if cmd.Type == 0 {
		return ""
	}
	return string(cmd.Type) + strconv.Itoa(cmd.Number)
}
