package pio

import "sync/atomic"

const (
	numPIO   = 2 // PIO0, PIO1
	smPerPIO = 4
)

// smAllocator hands out PIO state machines round-robin across both blocks
type smAllocator struct {
	used    [numPIO][smPerPIO]bool
	nextPIO uint8
	nextSM  uint8
}

// allocate returns a free state machine
func (a *smAllocator) allocate() (pioNum, smNum uint8, ok bool) {
	for i := 0; i < numPIO*smPerPIO; i++ {
		pioNum, smNum = a.nextPIO, a.nextSM

		a.nextSM++
		if a.nextSM >= smPerPIO {
			a.nextSM = 0
			a.nextPIO = (a.nextPIO + 1) % numPIO
		}

		if !a.used[pioNum][smNum] {
			a.used[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}
	return 0, 0, false
}

// release returns a state machine whose backend failed to start
func (a *smAllocator) release(pioNum, smNum uint8) {
	if pioNum < numPIO && smNum < smPerPIO {
		a.used[pioNum][smNum] = false
	}
}

func (a *smAllocator) status() [numPIO][smPerPIO]bool {
	return a.used
}

// txFIFO is the transmit side of a state machine
type txFIFO interface {
	IsTxFIFOFull() bool
	TxPut(data uint32)
}

// putOrDrop writes word unless the FIFO is full, in which case the pulse
// is dropped and counted. Never waits, it runs in the tick interrupt.
func putOrDrop(fifo txFIFO, word uint32, missed *atomic.Uint32) bool {
	if fifo.IsTxFIFOFull() {
		missed.Add(1)
		return false
	}
	fifo.TxPut(word)
	return true
}
