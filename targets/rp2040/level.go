//go:build rp2040

package main

import (
	"errors"
	"machine"

	"astrostepper/standalone"
	"astrostepper/standalone/config"

	"tinygo.org/x/drivers/adxl345"
)

// The level sensor sits on I2C1 (SDA=GP6, SCL=GP7), clear of the step pins
const levelMCode = 760

var errLevelMissing = errors.New("level sensor not responding")

// initLevel configures the ADXL345 and registers M760.
// A missing sensor leaves M760 reporting an error.
func initLevel(mgr *standalone.Manager, cfg config.LevelConfig) error {
	bus := machine.I2C1
	err := bus.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.GPIO6,
		SCL:       machine.GPIO7,
	})
	if err != nil {
		return err
	}

	sensor := adxl345.New(bus)
	sensor.Address = cfg.Address
	sensor.Configure()
	sensor.SetRange(adxl345.RANGE_2G)

	return mgr.RegisterMCode(levelMCode, standalone.LevelMCode(func() (int32, int32, int32, error) {
		x, y, z := sensor.ReadRawAcceleration()
		if x == 0 && y == 0 && z == 0 {
			return 0, 0, 0, errLevelMissing
		}
		return x, y, z, nil
	}))
}
