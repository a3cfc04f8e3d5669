package standalone

import (
	"math"
	"strconv"

	"astrostepper/standalone/gcode"
)

// LevelReader returns one raw accelerometer sample
type LevelReader func() (x, y, z int32, err error)

// Tilt converts an accelerometer sample to pitch and roll in degrees.
// Only the direction of gravity matters, so any unit works.
func Tilt(x, y, z int32) (pitch, roll float64) {
	fx, fy, fz := float64(x), float64(y), float64(z)
	pitch = math.Atan2(fx, math.Sqrt(fy*fy+fz*fz)) * 180 / math.Pi
	roll = math.Atan2(fy, fz) * 180 / math.Pi
	return pitch, roll
}

// LevelMCode builds the tilt report command for a mount level sensor
func LevelMCode(read LevelReader) gcode.MCodeHandler {
	return func(cmd *gcode.Command) (string, error) {
		x, y, z, err := read()
		if err != nil {
			return "", err
		}
		pitch, roll := Tilt(x, y, z)

		out := make([]byte, 0, 64)
		out = append(out, "X:"...)
		out = strconv.AppendInt(out, int64(x), 10)
		out = append(out, " Y:"...)
		out = strconv.AppendInt(out, int64(y), 10)
		out = append(out, " Z:"...)
		out = strconv.AppendInt(out, int64(z), 10)
		out = append(out, " PITCH:"...)
		out = strconv.AppendFloat(out, pitch, 'f', 2, 64)
		out = append(out, " ROLL:"...)
		out = strconv.AppendFloat(out, roll, 'f', 2, 64)
		return string(out), nil
	}
}
