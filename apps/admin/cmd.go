package main

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/shule/apps/di"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	c   *di.Container
	out io.Writer // defaults to stdout
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Shule administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	if cli.out != nil {
		root.SetOut(cli.out)
		root.SetErr(cli.out)
	}

	root.AddCommand(
		cli.migrateCmd(),
		cli.createSchoolCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.recalcWorkingDaysCmd(),
	)
	return root
}

// run executes the command line made of args (without the program name).
func (cli *commandLine) run(args []string) error {
	root := cli.newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
