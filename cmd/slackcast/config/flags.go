package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// ParseBool accepts true|false|1|0|yes|no|on|off, case-insensitively.
// Anything else is an error rather than a silent false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q (want true, false, 1, 0, yes, no, on or off)", s)
	}
}

// BoolChoice is a flag value that must be given explicitly, as in
// "--dry-run True" or "-d 0".
type BoolChoice struct {
	target *bool
}

var _ pflag.Value = (*BoolChoice)(nil)

// NewBoolChoice binds a BoolChoice to target.
func NewBoolChoice(target *bool) *BoolChoice {
	return &BoolChoice{target: target}
}

func (b *BoolChoice) String() string {
	if b == nil || b.target == nil {
		return "false"
	}
	return strconv.FormatBool(*b.target)
}

func (b *BoolChoice) Set(s string) error {
	v, err := ParseBool(s)
	if err != nil {
		return err
	}
	*b.target = v
	return nil
}

func (b *BoolChoice) Type() string {
	return "true|false"
}
