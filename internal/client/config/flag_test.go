package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-d", "x.db", "-r", "postgres://db", "-b", "/blobs", "-l", "debug", "-i", "10", "-z", "UTC"},
			expected: &Config{
				DBPath: "x.db", DocStoreDSN: "postgres://db", BlobDir: "/blobs", LogLevel: "debug",
				WatchInterval: 10 * time.Second, Timezone: "UTC", ShareGrace: 5 * time.Second,
			},
		},
		{
			name:     "no interval keeps sub-second value",
			args:     []string{"cmd", "-c", "ignored.json"},
			expected: &Config{WatchInterval: 500 * time.Millisecond, ShareGrace: 5 * time.Second},
		},
		{name: "incorrect interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{WatchInterval: 500 * time.Millisecond, ShareGrace: 5 * time.Second}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
