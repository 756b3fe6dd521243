package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core/calendar"
	"github.com/trezcool/shule/core/school"
)

func (cli *commandLine) createSchoolCmd() *cobra.Command {
	var ns school.NewSchool

	cmd := &cobra.Command{
		Use:   "createschool",
		Short: "Create a school (tenant)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ns.Validate(cli.c.Validate); err != nil {
				return err
			}
			sch, err := cli.c.SchoolSvc.Create(cmd.Context(), ns)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "school %s created: %s\n", sch.Code, sch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ns.Name, "name", "", "The school's name")
	cmd.Flags().StringVar(&ns.Code, "code", "", "A short unique code")
	cmd.Flags().StringVar(&ns.Address, "address", "", "")
	cmd.Flags().StringVar(&ns.Phone, "phone", "", "")
	cmd.Flags().StringVar(&ns.Email, "email", "", "")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (cli *commandLine) recalcWorkingDaysCmd() *cobra.Command {
	var schoolID, sessionID string

	cmd := &cobra.Command{
		Use:   "recalcworkingdays",
		Short: "Recount the working days of a school's academic sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sessions []calendar.Session
			if sessionID != "" {
				sess, err := cli.c.CalendarSvc.RecalculateWorkingDays(cmd.Context(), schoolID, sessionID)
				if err != nil {
					return err
				}
				sessions = append(sessions, sess)
			} else {
				var err error
				if sessions, err = cli.c.CalendarSvc.RecalculateAll(cmd.Context(), schoolID); err != nil {
					return err
				}
			}
			for _, sess := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d working days\n", sess.Name, sess.WorkingDays)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schoolID, "school", "", "The school's ID")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only recount this session")
	_ = cmd.MarkFlagRequired("school")
	return cmd
}
