package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/core/services"
)

// RegisterCmd creates the register command
func RegisterCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <first_name> <last_name> <badge_type>",
		Short: "Register a new attendee, numbering their badge if the type needs one",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			badgeType, err := parseBadgeType(args[2])
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			staffing, _ := cmd.Flags().GetBool("staffing")
			paidFlag, _ := cmd.Flags().GetString("paid")
			numFlag, _ := cmd.Flags().GetString("badge-num")

			paid, err := parsePaidStatus(paidFlag)
			if err != nil {
				return err
			}
			badgeNum, err := parseBadgeNum(numFlag)
			if err != nil {
				return err
			}

			attendee, err := services.RegisterAttendee(app.Ctx, app.Numbering, app.Logger, &model.Attendee{
				FirstName:   args[0],
				LastName:    args[1],
				Email:       email,
				BadgeType:   badgeType,
				BadgeNum:    badgeNum,
				BadgeStatus: model.CompletedStatus,
				Paid:        paid,
				Staffing:    staffing,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Registered %s\n\n", attendee.FullName())
			fmt.Printf("Attendee ID: %s\n", attendee.ID)
			fmt.Printf("Badge:       %s %s\n", attendee.BadgeType.Label(), formatBadgeNum(attendee.BadgeNum))
			if len(attendee.Ribbons) > 0 {
				fmt.Printf("Ribbons:     %s\n", model.RibbonLabels(attendee.Ribbons))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("email", "", "Attendee email address")
	cmd.Flags().Bool("staffing", false, "Register the attendee as a volunteer")
	cmd.Flags().String("paid", "paid", "Paid status: paid, not_paid, need_not_pay, paid_by_group or refunded")
	cmd.Flags().String("badge-num", "", "Badge number to take, moving the holder and those after them up (default: next free)")

	return cmd
}

// ChangeBadgeCmd creates the changeBadge command
func ChangeBadgeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "changeBadge <attendee_id> <badge_type> [badge_num]",
		Short: "Change an attendee's badge type and number (next free number when omitted)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			badgeType, err := parseBadgeType(args[1])
			if err != nil {
				return err
			}
			var badgeNum *int
			if len(args) > 2 {
				if badgeNum, err = parseBadgeNum(args[2]); err != nil {
					return err
				}
			}

			message, err := services.ChangeBadge(app.Ctx, app.Numbering, app.Logger, args[0], badgeType, badgeNum)
			var rejection *services.ChangeRejectedError
			if errors.As(err, &rejection) {
				fmt.Printf("\n✗ %s\n\n", rejection.Reason)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %s\n\n", message)
			return nil
		},
	}
}

// NextBadgeCmd creates the nextBadge command
func NextBadgeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "nextBadge <badge_type>",
		Short: "Show the next badge number that would be assigned for a badge type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			badgeType, err := parseBadgeType(args[0])
			if err != nil {
				return err
			}

			next, err := services.NextBadgeNumber(app.Ctx, app.Numbering, app.Logger, badgeType)
			if errors.Is(err, badges.ErrRangeExhausted) {
				fmt.Printf("\n⚠️  No %s badge numbers are left\n\n", badgeType.Label())
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("\nNext %s badge: %d\n\n", badgeType.Label(), next)
			return nil
		},
	}
}

// ShiftBadgesCmd creates the shiftBadges command
func ShiftBadgesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shiftBadges <badge_type> <from>",
		Short: "Move every badge of a type numbered from <from> up or down by one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			badgeType, err := parseBadgeType(args[0])
			if err != nil {
				return err
			}
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("from must be a number: %w", err)
			}

			up, _ := cmd.Flags().GetBool("up")
			down, _ := cmd.Flags().GetBool("down")
			until, _ := cmd.Flags().GetInt("until")

			app.Logger.Debug("shiftBadges command",
				zap.String("badge_type", badgeType.Label()),
				zap.Int("from", from),
				zap.Bool("up", up),
				zap.Int("until", until))

			shifted, err := services.ShiftBadges(app.Ctx, app.Numbering, app.Logger, badgeType, from,
				badges.ShiftOptions{Up: up, Down: down, Until: until})
			if err != nil {
				return err
			}

			if !shifted {
				fmt.Println("\nBadge shifting is turned off, nothing was moved.")
				fmt.Println()
				return nil
			}
			fmt.Printf("\n✓ %s badges from %d shifted\n\n", badgeType.Label(), from)
			return nil
		},
	}

	cmd.Flags().Bool("up", false, "Shift badges up to open a gap at <from>")
	cmd.Flags().Bool("down", false, "Shift badges down to close a gap below <from> (default)")
	cmd.Flags().Int("until", 0, "Last badge number to move (default: top of the range)")

	return cmd
}

// DeleteAttendeesCmd creates the deleteAttendees command
func DeleteAttendeesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deleteAttendees <attendee_id>...",
		Short: "Delete attendees, closing the gaps their badge numbers leave",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, _ := cmd.Flags().GetBool("keep-numbering")

			if err := services.DeleteAttendees(app.Ctx, app.Numbering, app.Logger, args, keep); err != nil {
				return err
			}

			fmt.Printf("\n✓ Deleted %d attendee(s)\n\n", len(args))
			return nil
		},
	}

	cmd.Flags().Bool("keep-numbering", false, "Leave the other badge numbers where they are")

	return cmd
}

// CheckBadgesCmd creates the checkBadges command
func CheckBadgesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkBadges",
		Short: "Report duplicate, out of range and missing badge numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			problems, err := services.CheckBadgeConsistency(app.Ctx, app.Numbering, app.Logger)
			if err != nil {
				return err
			}

			if len(problems) == 0 {
				fmt.Printf("\n✓ Badge numbers are consistent\n\n")
				return nil
			}

			fmt.Printf("\n⚠️  Found %d problem(s):\n", len(problems))
			for _, p := range problems {
				fmt.Printf("  ✗ %s\n", p)
			}
			fmt.Println()
			return nil
		},
	}
}
