package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/core/services"
	"github.com/magfest/ubersystem/pkg/core/volunteers"
)

const timeLayout = "Mon 15:04"

// printRefusal reports an eligibility refusal as a normal outcome rather than a failure
func printRefusal(err error) bool {
	var refusal *volunteers.EligibilityError
	if !errors.As(err, &refusal) {
		return false
	}
	fmt.Printf("\n✗ %s (%s)\n\n", refusal.Message, refusal.Criterion)
	return true
}

func printShift(shift *model.Shift) {
	fmt.Printf("\n✓ %s is working %s\n\n", shift.Attendee.FullName(), shift.Job.Name)
	fmt.Printf("Shift ID: %s\n", shift.ID)
	fmt.Printf("When:     %s - %s\n\n", shift.Job.StartTime.Format(timeLayout), shift.Job.EndTime().Format("15:04"))
}

// AssignShiftCmd creates the assignShift command
func AssignShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assignShift <attendee_id> <job_id>",
		Short: "Assign a volunteer to a job as a department head",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shift, err := services.AssignShift(app.Ctx, app.DB, app.Engine, app.Logger, args[0], args[1])
			if printRefusal(err) {
				return nil
			}
			if err != nil {
				return err
			}
			printShift(shift)
			return nil
		},
	}
}

// SignUpCmd creates the signUp command
func SignUpCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "signUp <attendee_id> <job_id>",
		Short: "Sign a volunteer up for a job in one of their departments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shift, err := services.SignUp(app.Ctx, app.DB, app.Engine, app.Logger, args[0], args[1])
			if printRefusal(err) {
				return nil
			}
			if err != nil {
				return err
			}
			printShift(shift)
			return nil
		},
	}
}

// UnassignCmd creates the unassign command
func UnassignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <shift_id>",
		Short: "Remove a volunteer from a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.Unassign(app.Ctx, app.DB, app.Logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Shift %s removed\n\n", args[0])
			return nil
		},
	}
}

// SetJobSlotsCmd creates the setJobSlots command
func SetJobSlotsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setJobSlots <job_id> <slots>",
		Short: "Change how many volunteers a job takes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("slots must be a number: %w", err)
			}

			err = services.UpdateJobSlots(app.Ctx, app.DB, app.Logger, args[0], slots)
			if printRefusal(err) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Job %s now has %d slots\n\n", args[0], slots)
			return nil
		},
	}
}
