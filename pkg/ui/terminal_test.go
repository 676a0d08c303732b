package ui

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestPrinterPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Error("load failed", errors.New("resource missing"))
	p.Success("configuration valid")
	p.Info("environment", "STAGING")
	p.Warning("keyring unavailable")

	assert.Equal(t, "load failed: resource missing\nconfiguration valid\nenvironment: STAGING\nkeyring unavailable\n", buf.String())
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPrinterColors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.renderer.SetColorProfile(termenv.TrueColor)

	p.Success("ok")

	assert.Contains(t, buf.String(), "\x1b[")
	assert.Equal(t, "ok\n", ansi.ReplaceAllString(buf.String(), ""))
}

func TestPrinterTable(t *testing.T) {
	tests := []struct {
		name    string
		profile termenv.Profile
	}{
		{"plain", termenv.Ascii},
		{"colored", termenv.TrueColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPrinter(&buf)
			p.renderer.SetColorProfile(tt.profile)

			require.NoError(t, p.Table([]string{"KEY", "VALUE"}, [][]string{
				{"execution.retry", "2"},
				{"logging.level", "info"},
			}))

			lines := strings.Split(strings.TrimRight(ansi.ReplaceAllString(buf.String(), ""), "\n"), "\n")
			require.Len(t, lines, 3)
			assert.Equal(t, []string{"KEY", "VALUE"}, strings.Fields(lines[0]))
			assert.Equal(t, []string{"execution.retry", "2"}, strings.Fields(lines[1]))
			assert.Equal(t, []string{"logging.level", "info"}, strings.Fields(lines[2]))

			// Second column starts at the same offset on every line
			col := strings.Index(lines[0], "VALUE")
			assert.Equal(t, col, strings.Index(lines[1], "2"))
			assert.Equal(t, col, strings.Index(lines[2], "info"))
			assert.Equal(t, len("execution.retry")+cellPadding, col)
		})
	}
}
