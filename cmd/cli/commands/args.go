package commands

import (
	"fmt"
	"strconv"

	"github.com/magfest/ubersystem/pkg/core/model"
)

func parseBadgeType(s string) (model.BadgeType, error) {
	t, err := model.ParseBadgeType(s)
	if err != nil {
		return 0, fmt.Errorf("badge_type must be one of the configured badge types: %w", err)
	}
	return t, nil
}

func parsePaidStatus(s string) (model.PaidStatus, error) {
	p, err := model.ParsePaidStatus(s)
	if err != nil {
		return 0, fmt.Errorf("paid must be one of paid, not_paid, need_not_pay, paid_by_group or refunded: %w", err)
	}
	return p, nil
}

// parseBadgeNum reads an optional badge number; "" and "auto" ask for the next free one
func parseBadgeNum(s string) (*int, error) {
	if s == "" || s == "auto" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("badge_num must be a number: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("badge_num must not be negative")
	}
	return &n, nil
}

func formatBadgeNum(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
