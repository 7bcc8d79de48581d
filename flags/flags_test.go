package flags

import (
	"testing"
	"time"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	bare := map[string]string{
		"selenium.host": "SELENIUM_HUB_HOST",
		"selenium.port": "SELENIUM_HUB_PORT",
		"android.host":  "ANDROID_HOST",
		"android.port":  "ANDROID_PORT",
		"ios.host":      "IOS_HOST",
		"ios.port":      "IOS_PORT",
	}

	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")

			if want, ok := bare[flagName]; ok {
				require.Equal(t, want, envFlags[0])
				return
			}
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func TestBackendDefaults(t *testing.T) {
	app := &cli.App{
		Flags: BackendFlags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "selenium", ctx.String(SeleniumHost.Name))
			assert.Equal(t, "4444", ctx.String(SeleniumPort.Name))
			assert.Equal(t, "android", ctx.String(AndroidHost.Name))
			assert.Equal(t, "4723", ctx.String(AndroidPort.Name))
			assert.Equal(t, "ios", ctx.String(IOSHost.Name))
			assert.Equal(t, "4725", ctx.String(IOSPort.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}

func TestBackendEnvOverride(t *testing.T) {
	t.Setenv("SELENIUM_HUB_HOST", "grid.internal")
	t.Setenv("IOS_PORT", "9999")

	app := &cli.App{
		Flags: BackendFlags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "grid.internal", ctx.String(SeleniumHost.Name))
			assert.Equal(t, "9999", ctx.String(IOSPort.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}

func TestFlagValidation(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		shouldError bool
	}{
		{"defaults", []string{"app"}, false},
		{"valid timeout", []string{"app", "--suite-timeout", "10m"}, false},
		{"zero timeout", []string{"app", "--suite-timeout", "0s"}, true},
		{"negative probe timeout", []string{"app", "--probe-timeout=-1s"}, true},
		{"valid attempts", []string{"app", "--probe-attempts", "1"}, false},
		{"zero attempts", []string{"app", "--probe-attempts", "0"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &cli.App{
				Flags:  []cli.Flag{SuiteTimeout, ProbeTimeout, ProbeAttempts},
				Action: func(ctx *cli.Context) error { return nil },
			}
			err := app.Run(tc.args)
			if tc.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	app := &cli.App{
		Flags: []cli.Flag{ReportsDir, RunnerBinary, SuiteTimeout, SettleDelay, ProgressInterval, ProbeAttempts, ProbeInterval},
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "reports", ctx.String(ReportsDir.Name))
			assert.Equal(t, "pytest", ctx.String(RunnerBinary.Name))
			assert.Equal(t, 300*time.Second, ctx.Duration(SuiteTimeout.Name))
			assert.Equal(t, 5*time.Second, ctx.Duration(SettleDelay.Name))
			assert.Equal(t, 30*time.Second, ctx.Duration(ProgressInterval.Name))
			assert.Equal(t, 30, ctx.Int(ProbeAttempts.Name))
			assert.Equal(t, 2*time.Second, ctx.Duration(ProbeInterval.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}
