package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// WrapMode controls how elapsed time past the end of a clip is reinterpreted during playback.
// The numeric values are part of the exported clip directory and must not change.
type WrapMode uint32

const (
	// WrapLoop restarts the clip from the beginning every cycle.
	WrapLoop WrapMode = 0

	// WrapOnceStartForever plays the clip once then holds the first frame.
	WrapOnceStartForever WrapMode = 1

	// WrapOnceEndForever plays the clip once then holds the last frame.
	WrapOnceEndForever WrapMode = 2

	// WrapPingPong plays the clip forward then backward, forever.
	WrapPingPong WrapMode = 4
)

// AuthoringWrapMode is the wrap setting found on source clips before conversion to a WrapMode.
type AuthoringWrapMode int

const (
	AuthoringDefault AuthoringWrapMode = iota
	AuthoringOnce
	AuthoringLoop
	AuthoringPingPong
	AuthoringClampForever
)

var wrapModeNames = map[WrapMode]string{
	WrapLoop:             "loop",
	WrapOnceStartForever: "once_start_forever",
	WrapOnceEndForever:   "once_end_forever",
	WrapPingPong:         "ping_pong",
}

var (
	_ yaml.Marshaler   = WrapLoop
	_ yaml.Unmarshaler = (*WrapMode)(nil)
)

// WrapModeFromAuthoring maps an authoring wrap setting to its runtime WrapMode.
// PingPong maps to WrapPingPong.
//
// Parameters:
//   - mode: the authoring wrap setting
//
// Returns:
//   - WrapMode: the runtime wrap mode
func WrapModeFromAuthoring(mode AuthoringWrapMode) WrapMode {
	switch mode {
	case AuthoringOnce:
		return WrapOnceStartForever
	case AuthoringClampForever:
		return WrapOnceEndForever
	case AuthoringPingPong:
		return WrapPingPong
	default:
		return WrapLoop
	}
}

// ParseWrapMode parses a wrap mode name as produced by WrapMode.String.
// Matching is case-insensitive and accepts '-' in place of '_'.
//
// Parameters:
//   - s: the wrap mode name
//
// Returns:
//   - WrapMode: the parsed mode
//   - error: error if the name is not recognized
func ParseWrapMode(s string) (WrapMode, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for mode, name := range wrapModeNames {
		if name == key {
			return mode, nil
		}
	}
	return WrapLoop, fmt.Errorf("unknown wrap mode %q", s)
}

// Valid reports whether m is one of the defined wrap modes.
func (m WrapMode) Valid() bool {
	_, ok := wrapModeNames[m]
	return ok
}

func (m WrapMode) String() string {
	if name, ok := wrapModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("wrap_mode(%d)", uint32(m))
}

func (m WrapMode) MarshalYAML() (any, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid wrap mode %d", uint32(m))
	}
	return m.String(), nil
}

func (m *WrapMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("wrap mode: %w", err)
	}
	parsed, err := ParseWrapMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
