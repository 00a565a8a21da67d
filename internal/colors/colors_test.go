package colors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestInit(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	on, off := true, false
	tests := []struct {
		name  string
		start bool
		force *bool
		want  bool
	}{
		{"force on", true, &on, true},
		{"force off", false, &off, false},
		{"nil keeps enabled", false, nil, true},
		{"nil keeps disabled", true, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color.NoColor = tt.start
			Init(tt.force)
			if Enabled() != tt.want {
				t.Errorf("Enabled() = %v, want %v", Enabled(), tt.want)
			}
		})
	}
}

func TestPalette(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	palette := []struct {
		name string
		fn   func() *color.Color
	}{
		{"Header", Header},
		{"Label", Label},
		{"Address", Address},
		{"Opcode", Opcode},
		{"Comment", Comment},
		{"Name", Name},
		{"Good", Good},
		{"Bad", Bad},
		{"Warn", Warn},
	}
	for _, tc := range palette {
		t.Run(tc.name, func(t *testing.T) {
			color.NoColor = false
			if got := tc.fn().Sprint("x"); !strings.Contains(got, "\x1b[") {
				t.Errorf("%s() with colors on = %q, want ANSI codes", tc.name, got)
			}
			color.NoColor = true
			if got := tc.fn().Sprint("x"); got != "x" {
				t.Errorf("%s() with colors off = %q, want %q", tc.name, got, "x")
			}
		})
	}
}

func TestStatus(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	if got := Status(true); got != "OK" {
		t.Errorf("Status(true) = %q", got)
	}
	if got := Status(false); got != "BAD" {
		t.Errorf("Status(false) = %q", got)
	}
}
