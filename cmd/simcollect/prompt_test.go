package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcollect/pkg/config"
)

func TestPrompterString(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("\n  trader@example.com \n"), &out)

	got, err := p.String("Output directory", "./data")
	require.NoError(t, err)
	assert.Equal(t, "./data", got)

	got, err = p.String("Email", "")
	require.NoError(t, err)
	assert.Equal(t, "trader@example.com", got)
	assert.Contains(t, out.String(), "Output directory [./data]: ")
}

func TestPrompterStringEOF(t *testing.T) {
	p := newPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.String("Email", "")
	assert.Error(t, err)
}

func TestPrompterSecretWithoutTerminal(t *testing.T) {
	p := newPrompter(strings.NewReader("hunter2\n"), &bytes.Buffer{})
	got, err := p.Secret("Password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestPrompterIntRetries(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("abc\n0\n5\n"), &out)

	got, err := p.Int("Save interval", 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	assert.Equal(t, 2, strings.Count(out.String(), "at least 1"))
}

func TestPrompterSeconds(t *testing.T) {
	p := newPrompter(strings.NewReader("-1\n2.5\n\n"), &bytes.Buffer{})

	got, err := p.Seconds("Interval", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, got)

	got, err = p.Seconds("Interval", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got)
}

func TestPrompterConfirm(t *testing.T) {
	p := newPrompter(strings.NewReader("yes\nn\n\n"), &bytes.Buffer{})
	assert.True(t, p.Confirm("Continue?", false))
	assert.False(t, p.Confirm("Continue?", true))
	assert.True(t, p.Confirm("Continue?", true))
	// EOF falls back to the default
	assert.False(t, p.Confirm("Continue?", false))
}

func TestMaskConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Account.Password = "short"
	cfg.Session.Cookies = map[string]string{"sessionid": "abcdefghijklmnop"}

	masked := maskConfig(cfg)
	assert.Equal(t, "***", masked.Account.Password)
	assert.Equal(t, "abcd...mnop", masked.Session.Cookies["sessionid"])
	// The original is untouched
	assert.Equal(t, "abcdefghijklmnop", cfg.Session.Cookies["sessionid"])
	assert.Equal(t, "", mask(""))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}

func TestIntervalFlagAcceptsSeconds(t *testing.T) {
	tests := []struct {
		arg  string
		want time.Duration
	}{
		{"60", time.Minute},
		{"0", 0},
		{"1.5", 1500 * time.Millisecond},
		{"90s", 90 * time.Second},
		{"2m", 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			cmd := &cobra.Command{Use: "collect"}
			addCollectFlags(cmd)
			require.NoError(t, cmd.ParseFlags([]string{"--interval", tt.arg}))

			flags := collectFlags(cmd)
			assert.Equal(t, tt.want, flags["interval"])
		})
	}

	cmd := &cobra.Command{Use: "collect"}
	addCollectFlags(cmd)
	assert.Error(t, cmd.ParseFlags([]string{"--interval", "soon"}))
}
