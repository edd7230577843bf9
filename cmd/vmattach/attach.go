//go:build linux

package main

import (
	"context"
	"fmt"

	"vmattach/attach"
	"vmattach/discovery"
	"vmattach/process"

	"github.com/spf13/cobra"
)

// agentJar is looked up next to the executable when no agent is configured
const agentJar = "vmattach-agent.jar"

var attachCmd = &cobra.Command{
	Use:   "attach <pid>",
	Short: "Load a Java agent into a JVM",
	Long: `Load a Java agent into the JVM with the given pid.

The attach is reported successful once the confirmation delay passes without
an error from the target. The connection is then released and the agent keeps
running in the target.`,
	Args: cobra.ExactArgs(1),
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringP("agent", "a", "", "Path of the agent JAR (default: "+agentJar+" next to vmattach)")
	attachCmd.Flags().String("agent-options", "", "Options passed to the agent")
	attachCmd.Flags().Duration("confirm-delay", attach.DefaultConfirmDelay, "Time without failure after which the attach counts as successful")

	v.BindPFlag("attach.agent_path", attachCmd.Flags().Lookup("agent"))
	v.BindPFlag("attach.agent_options", attachCmd.Flags().Lookup("agent-options"))
	v.BindPFlag("attach.confirm_delay", attachCmd.Flags().Lookup("confirm-delay"))
}

func runAttach(cmd *cobra.Command, args []string) error {
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

	target, err := discovery.NewTarget(conn, desc.DisplayName(), cfg.Discovery.PropertyTTL)
	if err != nil {
		conn.Detach()
		return err
	}

	var locator attach.AgentLocator = attach.ExecutableLocator{Name: agentJar}
	if cfg.Attach.AgentPath != "" {
		locator = attach.FileLocator{Path: cfg.Attach.AgentPath}
	}

	orchestrator := attach.New(locator,
		attach.WithConfirmDelay(cfg.Attach.ConfirmDelay),
		attach.WithAgentOptions(cfg.Attach.AgentOptions),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Attach.ConfirmDelay+cfg.Attach.Timeout)
	defer cancel()

	if err := orchestrator.AttachWait(ctx, target); err != nil {
		fmt.Printf("Attach to %s failed (%v)\n", target, kindOf(err))
		target.Conn().Detach()
		return err
	}

	fmt.Printf("Attached to %s\n", target)
	return orchestrator.Detach(target)
}

func kindOf(err error) error {
	if kind := process.KindOf(err); kind != nil {
		return kind
	}
	return err
}
