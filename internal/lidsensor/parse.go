package lidsensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyLine is returned by ParseAngleLine for blank sensor output.
var ErrEmptyLine = errors.New("empty sensor line")

// ParseAngleLine parses one line of sensor output into a lid angle in degrees.
// The sensor emits one decimal value per line ("93.5"); some firmware
// revisions prefix the reading ("A=93.5"). Anything else is rejected so the
// monitor loop can skip boot banners and debug chatter from the device.
func ParseAngleLine(line string) (float64, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return 0, ErrEmptyLine
	}
	s = strings.TrimPrefix(s, "A=")
	angle, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable angle line %q: %w", line, err)
	}
	return angle, nil
}
