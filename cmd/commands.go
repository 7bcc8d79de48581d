package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/saythanks/mobile-harness/devices"
	"github.com/saythanks/mobile-harness/flags"
	"github.com/saythanks/mobile-harness/registry"
)

// ListSuitesCommand prints the suite plan a run would execute, in order.
func ListSuitesCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-suites",
		Usage: "Print the ordered suite plan without running it",
		Flags: []cli.Flag{flags.Plan},
		Action: func(c *cli.Context) error {
			reg, err := registry.NewRegistry(registry.Config{PlanFile: c.String(flags.Plan.Name)})
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(c.App.Writer)
			t.AppendHeader(table.Row{"#", "Suite", "Path", "HTML Report"})
			for i, s := range reg.GetSuites() {
				t.AppendRow(table.Row{i + 1, s.Name, s.Path, s.HTMLReportName()})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
}

// ListDevicesCommand prints the profiles of a device catalog.
func ListDevicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-devices",
		Usage: "Print the device profiles exported to suites",
		Flags: []cli.Flag{flags.Devices},
		Action: func(c *cli.Context) error {
			path, err := devices.Find(c.String(flags.Devices.Name))
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("no device catalog found, searched %v", devices.DefaultCatalogPaths)
			}
			catalog, err := devices.Load(path)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(c.App.Writer)
			t.SetTitle(catalog.Path())
			t.AppendHeader(table.Row{"Device", "Category", "Viewport", "User Agent"})
			for _, name := range catalog.Names() {
				p, cat, _ := catalog.Get(name)
				t.AppendRow(table.Row{name, cat, fmt.Sprintf("%dx%d", p.Width, p.Height), p.UserAgent})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
}
