package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/core/services"
)

// DefineJobsCmd creates the defineJobs command
func DefineJobsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "defineJobs <template_name>",
		Short: "Create the jobs described by a job template in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := app.Cfg.Template(args[0])
			if err != nil {
				return err
			}

			jobs, err := services.DefineJobs(app.Ctx, app.DB, app.Logger, tmpl)
			if err != nil {
				return err
			}

			if len(jobs) == 0 {
				fmt.Println("\nThe template's schedule produced no jobs.")
				fmt.Println()
				return nil
			}

			fmt.Printf("\n✓ Created %d jobs for %s\n\n", len(jobs), jobs[0].Department.Name)
			for i, job := range jobs {
				fmt.Printf("  %2d. %s  %s  (%d slots)\n", i+1, job.StartTime.Format(timeLayout), job.ID, job.Slots)
			}
			fmt.Println()
			return nil
		},
	}
}

func printVolunteers(heading string, attendees []*model.Attendee) {
	fmt.Printf("\n%s: %d\n\n", heading, len(attendees))
	for _, a := range attendees {
		fmt.Printf("- %s (%s)\n", a.FullName(), a.ID)
	}
	fmt.Println()
}

// CapableVolunteersCmd creates the capableVolunteers command
func CapableVolunteersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "capableVolunteers <job_id>",
		Short: "List department members who hold the roles a job needs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attendees, err := services.CapableVolunteers(app.Ctx, app.DB, app.Engine, app.Logger, args[0])
			if err != nil {
				return err
			}
			printVolunteers("Capable volunteers", attendees)
			return nil
		},
	}
}

// AvailableVolunteersCmd creates the availableVolunteers command
func AvailableVolunteersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "availableVolunteers <job_id>",
		Short: "List capable volunteers who are free for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attendees, err := services.AvailableVolunteers(app.Ctx, app.DB, app.Engine, app.Logger, args[0])
			if err != nil {
				return err
			}
			printVolunteers("Available volunteers", attendees)
			return nil
		},
	}
}

// PossibleJobsCmd creates the possibleJobs command
func PossibleJobsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "possibleJobs <attendee_id>",
		Short: "List the jobs a volunteer could sign up for right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := services.PossibleJobs(app.Ctx, app.DB, app.Engine, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\nPossible jobs: %d\n\n", len(jobs))
			for _, job := range jobs {
				public := ""
				if job.IsPublic() {
					public = "  [open to all volunteers]"
				}
				fmt.Printf("- %-30s %s  %d/%d  (%s)%s\n",
					job.Name,
					job.StartTime.Format(timeLayout),
					job.SlotsTaken(),
					job.Slots,
					job.ID,
					public,
				)
			}
			fmt.Println()
			return nil
		},
	}
}

// VolunteerHoursCmd creates the volunteerHours command
func VolunteerHoursCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "volunteerHours <attendee_id>",
		Short: "Show a volunteer's weighted and worked hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := services.VolunteerHours(app.Ctx, app.DB, app.Logger, args[0])
			if err != nil {
				return err
			}

			app.Logger.Debug("Hours report built",
				zap.String("attendee_id", args[0]),
				zap.Int("departments", len(report.ByDepartment)))

			s := report.Summary
			fmt.Printf("\n%s\n\n", report.Volunteer.FullName())
			fmt.Printf("Weighted hours:   %6.2f\n", s.WeightedHours)
			fmt.Printf("Unweighted hours: %6.2f\n", s.UnweightedHours)
			fmt.Printf("Worked hours:     %6.2f\n", s.WorkedHours)
			fmt.Printf("Nonshift hours:   %6.2f\n", s.NonshiftHours)
			if !s.TakesShifts {
				fmt.Println("Works only in shiftless departments")
			}

			if len(report.ByDepartment) > 0 {
				fmt.Printf("\n  %-24s %8s %8s\n", "Department", "Weighted", "Worked")
				for _, d := range report.ByDepartment {
					fmt.Printf("  %-24s %8.2f %8.2f\n", d.Name, d.Weighted, d.Worked)
				}
			}
			fmt.Println()
			return nil
		},
	}
}
