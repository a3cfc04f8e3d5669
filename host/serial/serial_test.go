package serial

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")

	if cfg.Device != "/dev/ttyACM0" {
		t.Errorf("Expected device /dev/ttyACM0, got %s", cfg.Device)
	}
	if cfg.Baud != DefaultBaud || cfg.ReadTimeout != DefaultReadTimeout {
		t.Errorf("Expected %d baud and %dms timeout, got %d and %d",
			DefaultBaud, DefaultReadTimeout, cfg.Baud, cfg.ReadTimeout)
	}
}

func TestOpenRejectsMissingDevice(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := Open(&Config{}); err == nil {
		t.Error("Expected error for empty device")
	}
}
