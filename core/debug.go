package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// MotionEvent captures a facade-level motion change for post-mortem analysis
type MotionEvent struct {
	EventType uint8  // Event type code
	Motor     uint8  // Motor slot
	Millis    uint32 // Application clock at event
	Value     int64  // Target position or speed, depending on type
}

// Event type codes
const (
	EvtMoveTo        = 1 // New absolute target
	EvtSetSpeed      = 2 // Continuous-speed mode entered or changed
	EvtStop          = 3 // Motion halted
	EvtTargetReached = 4 // Planner arrived at target
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	// Disabled by default; pulse-rate reports are only produced when enabled
	debugEnabled bool = false

	// Motion event ring buffer, written from application context only
	eventRing     [EventRingSize]MotionEvent
	eventRingHead uint8

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message (non-blocking)
		}
	}
}

// RecordEvent captures a motion event in the ring buffer
func RecordEvent(eventType, motor uint8, millis uint32, value int64) {
	idx := eventRingHead
	eventRing[idx] = MotionEvent{
		EventType: eventType,
		Motor:     motor,
		Millis:    millis,
		Value:     value,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events from oldest to newest
func Events() []MotionEvent {
	events := make([]MotionEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns the mnemonic for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtMoveTo:
		return "MOVE_TO"
	case EvtSetSpeed:
		return "SET_SPEED"
	case EvtStop:
		return "STOP"
	case EvtTargetReached:
		return "REACHED"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents writes the event ring through the debug writer
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Motion Event Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.EventType) +
			" motor=" + itoa(int(evt.Motor)) +
			" ms=" + utoa(evt.Millis) +
			" value=" + i64toa(evt.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event buffer
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = MotionEvent{}
	}
	eventRingHead = 0
}
