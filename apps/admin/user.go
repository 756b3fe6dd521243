package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlxrepos"
)

type newUserOpts struct {
	schoolID string
	name     string
	username string
	email    string
	roles    []string
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var opts newUserOpts

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the roles & password of an existing one",
		Long: `Create a user, or update the roles & password of an existing one.
Users without --school must be super admins. The password will be prompted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), opts, pwd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s saved: %s\n", usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.schoolID, "school", "", "The school's ID")
	cmd.Flags().StringVar(&opts.name, "name", "", "")
	cmd.Flags().StringVar(&opts.username, "username", "", "")
	cmd.Flags().StringVar(&opts.email, "email", "", "")
	cmd.Flags().StringSliceVar(&opts.roles, "roles", []string{user.RoleAdmin}, "Comma separated roles")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, opts newUserOpts, pwd string) (user.User, error) {
	uname := core.CleanString(opts.username, true /* lower */)
	email := core.CleanString(opts.email, true /* lower */)
	for _, role := range opts.roles {
		if !core.ContainsString(user.AllRoles, role) {
			return user.User{}, fmt.Errorf("unknown role %q", role)
		}
	}

	usr, err := cli.c.UserSvc.GetByUsernameOrEmail(ctx, uname)
	if err == user.ErrNotFound && email != "" {
		usr, err = cli.c.UserSvc.GetByUsernameOrEmail(ctx, email)
	}
	switch {
	case err == user.ErrNotFound:
		name := core.CleanString(opts.name)
		if name == "" {
			name = uname
		}
		return cli.c.UserSvc.Create(ctx, opts.schoolID, user.NewUser{
			Name:     name,
			Username: uname,
			Email:    email,
			Password: pwd,
			Roles:    opts.roles,
		})
	case err != nil:
		return user.User{}, err
	}

	usr.Roles = opts.roles
	usr.IsActive = true
	return cli.savePassword(ctx, usr, pwd)
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username or email. The password will be prompted next.")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.c.UserSvc.GetByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	_, err = cli.savePassword(ctx, usr, pwd)
	return err
}

// savePassword skips the password validators: admins may set anything here.
func (cli *commandLine) savePassword(ctx context.Context, usr user.User, pwd string) (user.User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}
	usr.UpdatedAt = core.NowFunc()
	return sqlxrepos.NewUserRepository(cli.c.DB).UpdateUser(ctx, usr)
}
