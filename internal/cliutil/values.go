// Package cliutil provides pflag.Value implementations for the
// non-primitive flags §6.1/§6.2 define: octal file modes, the munge
// policy enum, and the serialization format enum.
package cliutil

import (
	"fmt"
	"strconv"

	"github.com/go-ffs/ffs/internal/format"
	"github.com/go-ffs/ffs/internal/munge"
)

// OctalModeValue implements pflag.Value for --mode/--dirmode, which
// take a string like "644" or "0644" and parse as base-8.
type OctalModeValue struct {
	Value uint32
}

func NewOctalModeValue(def uint32) *OctalModeValue {
	return &OctalModeValue{Value: def}
}

func (v *OctalModeValue) String() string { return fmt.Sprintf("%04o", v.Value) }
func (v *OctalModeValue) Type() string   { return "mode" }
func (v *OctalModeValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid octal mode %q: %w", s, err)
	}
	v.Value = uint32(n)
	return nil
}

// MungeValue implements pflag.Value for --munge {rename,filter}.
type MungeValue struct {
	Value munge.Policy
}

func NewMungeValue(def munge.Policy) *MungeValue {
	return &MungeValue{Value: def}
}

func (v *MungeValue) String() string { return v.Value.String() }
func (v *MungeValue) Type() string   { return "munge" }
func (v *MungeValue) Set(s string) error {
	p, ok := munge.ParsePolicy(s)
	if !ok {
		return fmt.Errorf("invalid --munge value %q, want \"rename\" or \"filter\"", s)
	}
	v.Value = p
	return nil
}

// FormatValue implements pflag.Value for -s/-t and --type/--target,
// validating against internal/format.Lookup eagerly so a bad format
// name is rejected at flag-parse time rather than at decode time.
type FormatValue struct {
	Value string
}

func NewFormatValue(def string) *FormatValue {
	return &FormatValue{Value: def}
}

func (v *FormatValue) String() string { return v.Value }
func (v *FormatValue) Type() string   { return "format" }
func (v *FormatValue) Set(s string) error {
	if _, err := format.Lookup(s); err != nil {
		return err
	}
	v.Value = s
	return nil
}
