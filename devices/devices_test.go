package devices

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
  "mobile_devices": {
    "iPhone 12": {"width": 390, "height": 844, "user_agent": "Mozilla/5.0 (iPhone)"},
    "Pixel 5": {"width": 393, "height": 851, "user_agent": "Mozilla/5.0 (Linux; Android 11)"}
  },
  "tablet_devices": {
    "iPad Air": {"width": 820, "height": 1180, "user_agent": "Mozilla/5.0 (iPad)"}
  }
}`

const catalogYAML = `
mobile_devices:
  Galaxy S20:
    width: 360
    height: 800
    user_agent: "Mozilla/5.0 (Linux; Android 10)"
`

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		path := writeCatalog(t, "devices.json", catalogJSON)
		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, path, c.Path())
		assert.Equal(t, []string{"Pixel 5", "iPhone 12", "iPad Air"}, c.Names())
	})

	t.Run("yaml", func(t *testing.T) {
		c, err := Load(writeCatalog(t, "devices.yaml", catalogYAML))
		require.NoError(t, err)
		assert.Equal(t, []string{"Galaxy S20"}, c.Names())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			file    string
			content string
			wantErr string
		}{
			{name: "malformed", file: "d.json", content: "{", wantErr: "parsing device catalog"},
			{name: "empty", file: "d.json", content: "{}", wantErr: "no device profiles"},
			{
				name:    "bad viewport",
				file:    "d.yaml",
				content: "mobile_devices:\n  X:\n    width: 0\n    height: 10\n    user_agent: ua\n",
				wantErr: "width and height must be positive",
			},
			{
				name:    "no user agent",
				file:    "d.yaml",
				content: "tablet_devices:\n  Y:\n    width: 10\n    height: 10\n",
				wantErr: "user_agent is required",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load(writeCatalog(t, tt.file, tt.content))
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}

		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	c, err := Load(writeCatalog(t, "devices.json", catalogJSON))
	require.NoError(t, err)

	p, cat, err := c.Get("iPad Air")
	require.NoError(t, err)
	assert.Equal(t, CategoryTablet, cat)
	assert.Equal(t, 820, p.Width)

	_, cat, err = c.Get("iPhone 12")
	require.NoError(t, err)
	assert.Equal(t, CategoryMobile, cat)

	_, _, err = c.Get("Nokia 3310")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestMobileEmulation(t *testing.T) {
	c, err := Load(writeCatalog(t, "devices.json", catalogJSON))
	require.NoError(t, err)

	emu, err := c.MobileEmulation("iPhone 12")
	require.NoError(t, err)
	raw, err := json.Marshal(emu)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"deviceMetrics":{"width":390,"height":844,"pixelRatio":2},"userAgent":"Mozilla/5.0 (iPhone)"}`,
		string(raw))

	_, err = c.MobileEmulation("iPad Air")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestFind(t *testing.T) {
	path := writeCatalog(t, "devices.json", catalogJSON)
	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	_, err = Find(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	orig := DefaultCatalogPaths
	t.Cleanup(func() { DefaultCatalogPaths = orig })

	DefaultCatalogPaths = []string{filepath.Join(t.TempDir(), "absent.json"), path}
	found, err = Find("")
	require.NoError(t, err)
	assert.Equal(t, path, found)

	DefaultCatalogPaths = nil
	found, err = Find("")
	require.NoError(t, err)
	assert.Empty(t, found)
}
