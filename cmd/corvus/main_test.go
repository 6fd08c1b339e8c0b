package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	newApp := func() *cli.App {
		return &cli.App{
			Name: "corvus",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("accepts valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			err := newApp().Run([]string{"corvus", "--log-level", level})
			assert.NoError(t, err, "level %q should be accepted", level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := newApp().Run([]string{"corvus", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestReadInput(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("file content"), 0644))

		content, source, err := readInput(path)
		require.NoError(t, err)
		assert.Equal(t, "file content", content)
		assert.Equal(t, path, source)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := readInput(filepath.Join(t.TempDir(), "absent.txt"))
		assert.Error(t, err)
	})
}
