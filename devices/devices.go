// Package devices loads the device profile catalog that browser suites use
// to emulate phones and tablets.
package devices

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPixelRatio is the device pixel ratio used for mobile emulation.
const DefaultPixelRatio = 2.0

// DefaultCatalogPaths are searched in order when no catalog path is configured.
var DefaultCatalogPaths = []string{
	"/app/config/devices.json",
	"config/devices.json",
}

// ErrUnknownDevice is returned when a profile name is not in the catalog.
var ErrUnknownDevice = errors.New("unknown device")

// Category separates phone profiles from tablet profiles.
type Category string

const (
	CategoryMobile Category = "mobile"
	CategoryTablet Category = "tablet"
)

// Profile describes one emulated device.
type Profile struct {
	Width     int    `yaml:"width" json:"width"`
	Height    int    `yaml:"height" json:"height"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// Catalog is the parsed device configuration file.
type Catalog struct {
	Mobile map[string]Profile `yaml:"mobile_devices" json:"mobile_devices"`
	Tablet map[string]Profile `yaml:"tablet_devices" json:"tablet_devices"`

	path string
}

// Load reads a catalog. Files ending in .json are decoded as JSON, anything
// else as YAML.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device catalog: %w", err)
	}

	var c Catalog
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing device catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device catalog %s: %w", path, err)
	}
	c.path = path
	return &c, nil
}

// Find returns the first existing catalog among explicit and the default
// locations. An explicit path that does not exist is an error; an empty
// explicit path with no default present returns "" and no error.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("device catalog: %w", err)
		}
		return explicit, nil
	}
	for _, p := range DefaultCatalogPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Path returns the file the catalog was loaded from.
func (c *Catalog) Path() string {
	return c.path
}

// Validate checks that every profile has a usable viewport and user agent.
func (c *Catalog) Validate() error {
	if len(c.Mobile) == 0 && len(c.Tablet) == 0 {
		return errors.New("no device profiles defined")
	}
	for _, group := range []map[string]Profile{c.Mobile, c.Tablet} {
		for name, p := range group {
			if p.Width <= 0 || p.Height <= 0 {
				return fmt.Errorf("device %q: width and height must be positive", name)
			}
			if p.UserAgent == "" {
				return fmt.Errorf("device %q: user_agent is required", name)
			}
		}
	}
	return nil
}

// Names returns mobile profile names followed by tablet profile names, each
// group sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Mobile)+len(c.Tablet))
	names = append(names, sortedKeys(c.Mobile)...)
	return append(names, sortedKeys(c.Tablet)...)
}

// Get looks a profile up in both groups, mobile first.
func (c *Catalog) Get(name string) (Profile, Category, error) {
	if p, ok := c.Mobile[name]; ok {
		return p, CategoryMobile, nil
	}
	if p, ok := c.Tablet[name]; ok {
		return p, CategoryTablet, nil
	}
	return Profile{}, "", fmt.Errorf("%w: %q", ErrUnknownDevice, name)
}

// DeviceMetrics is the viewport part of a Chrome mobile emulation setting.
type DeviceMetrics struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// MobileEmulation is the value of Chrome's mobileEmulation option.
type MobileEmulation struct {
	DeviceMetrics DeviceMetrics `json:"deviceMetrics"`
	UserAgent     string        `json:"userAgent"`
}

// MobileEmulation builds the Chrome emulation setting for a mobile profile.
// Tablet profiles are not emulated this way.
func (c *Catalog) MobileEmulation(name string) (MobileEmulation, error) {
	p, ok := c.Mobile[name]
	if !ok {
		return MobileEmulation{}, fmt.Errorf("%w: %q is not a mobile device", ErrUnknownDevice, name)
	}
	return MobileEmulation{
		DeviceMetrics: DeviceMetrics{Width: p.Width, Height: p.Height, PixelRatio: DefaultPixelRatio},
		UserAgent:     p.UserAgent,
	}, nil
}

func sortedKeys(m map[string]Profile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
