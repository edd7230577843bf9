//go:build linux

package main

import (
	"fmt"
	"os"
	"sort"

	"vmattach/discovery"
	"vmattach/process"
	"vmattach/table"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attachable JVMs",
	Long:  `Scan once for running HotSpot JVMs and print their pid, main class, VM name and Java version.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	engine := discovery.NewEngine(newProvider(), discovery.NewRegistry(),
		discovery.WithPropertyTTL(cfg.Discovery.PropertyTTL),
	)
	defer engine.Shutdown()

	engine.Scan()

	targets := engine.Registry().Targets()
	if len(targets) == 0 {
		fmt.Println("No JVMs found")
		return nil
	}

	tbl := table.New(
		table.Column{Header: "PID", MinWidth: 7},
		table.Column{Header: "MAIN CLASS", FormatFunc: table.Unknown},
		table.Column{Header: "VM", FormatFunc: table.Unknown},
		table.Column{Header: "VERSION", FormatFunc: table.Unknown},
	)
	for _, t := range targets {
		tbl.AddRow(t.ID(), t.MainClass(), t.VMName(), t.JavaVersion())
	}
	return tbl.Render(os.Stdout)
}

var propsCmd = &cobra.Command{
	Use:   "props <pid>",
	Short: "Print the system properties of a JVM",
	Args:  cobra.ExactArgs(1),
	RunE:  runProps,
}

func runProps(cmd *cobra.Command, args []string) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}

	desc, err := newProvider().Descriptor(pid)
	if err != nil {
		return err
	}
	conn, err := desc.Connect()
	if err != nil {
		return err
	}
	defer conn.Detach()

	props, err := conn.FetchProperties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, props[k])
	}
	return err
}

func parsePID(arg string) (process.ProcessID, error) {
	if !process.IsNumericID(arg) {
		return 0, fmt.Errorf("invalid pid %q", arg)
	}
	return process.ParseID(arg)
}
