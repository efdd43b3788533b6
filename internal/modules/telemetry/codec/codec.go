// Package codec converts the tracker's compact 5-byte telemetry payload,
// transmitted as 10 hexadecimal characters, to and from numeric readings.
//
// Layout, left to right, one byte per pair of hex digits:
//
//	[0:2] longitude integral part
//	[2:4] longitude hundredths
//	[4:6] latitude integral part
//	[6:8] latitude hundredths
//	[8:10] battery percentage (0-255)
package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedPayload is returned when a payload is not exactly 10 hex digits.
var ErrMalformedPayload = errors.New("malformed payload")

// PayloadLen is the exact length of an encoded payload in hex characters.
const PayloadLen = 10

// Reading holds the decoded values of one payload.
type Reading struct {
	Longitude float64
	Latitude  float64
	Battery   int
}

// Decode parses a 10-hex-character payload into a Reading. Surrounding
// whitespace is trimmed and lower-case digits are accepted. Longitude and
// latitude come back rounded to 2 decimal places.
func Decode(payload string) (Reading, error) {
	p := strings.ToUpper(strings.TrimSpace(payload))
	if len(p) != PayloadLen {
		return Reading{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrMalformedPayload, PayloadLen, len(p))
	}

	lonInt, err := parseByte(p[0:2])
	if err != nil {
		return Reading{}, err
	}
	lonFrac, err := parseByte(p[2:4])
	if err != nil {
		return Reading{}, err
	}
	latInt, err := parseByte(p[4:6])
	if err != nil {
		return Reading{}, err
	}
	latFrac, err := parseByte(p[6:8])
	if err != nil {
		return Reading{}, err
	}
	battery, err := parseByte(p[8:10])
	if err != nil {
		return Reading{}, err
	}

	return Reading{
		Longitude: round2(float64(lonInt) + float64(lonFrac)/100.0),
		Latitude:  round2(float64(latInt) + float64(latFrac)/100.0),
		Battery:   int(battery),
	}, nil
}

// Encode is the inverse of Decode: it produces the payload string the device
// firmware emits for the given readings. Integral parts and battery must fit
// in one byte.
func Encode(longitude, latitude float64, battery int) (string, error) {
	lonInt, lonFrac, err := splitCoord("longitude", longitude)
	if err != nil {
		return "", err
	}
	latInt, latFrac, err := splitCoord("latitude", latitude)
	if err != nil {
		return "", err
	}
	if battery < 0 || battery > 255 {
		return "", fmt.Errorf("battery %d out of range 0-255", battery)
	}
	return fmt.Sprintf("%02X%02X%02X%02X%02X", lonInt, lonFrac, latInt, latFrac, battery), nil
}

func parseByte(pair string) (uint8, error) {
	v, err := strconv.ParseUint(pair, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid hex pair %q", ErrMalformedPayload, pair)
	}
	return uint8(v), nil
}

func splitCoord(name string, v float64) (uint8, uint8, error) {
	if v < 0 {
		return 0, 0, fmt.Errorf("%s %v must not be negative", name, v)
	}
	integral := math.Floor(v)
	if integral > 255 {
		return 0, 0, fmt.Errorf("%s %v integral part out of range 0-255", name, v)
	}
	frac := int(math.Round((v - integral) * 100))
	if frac > 255 {
		return 0, 0, fmt.Errorf("%s %v fractional part out of range", name, v)
	}
	return uint8(integral), uint8(frac), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
