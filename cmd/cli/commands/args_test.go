package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magfest/ubersystem/pkg/core/model"
)

func TestParseBadgeNum(t *testing.T) {
	n, err := parseBadgeNum("42")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 42, *n)

	for _, auto := range []string{"", "auto"} {
		n, err := parseBadgeNum(auto)
		require.NoError(t, err)
		assert.Nil(t, n)
	}

	_, err = parseBadgeNum("forty")
	assert.Error(t, err)
	_, err = parseBadgeNum("-3")
	assert.Error(t, err)
}

func TestParseBadgeType(t *testing.T) {
	bt, err := parseBadgeType("one_day")
	require.NoError(t, err)
	assert.Equal(t, model.OneDayBadge, bt)

	bt, err = parseBadgeType("Staff")
	require.NoError(t, err)
	assert.Equal(t, model.StaffBadge, bt)

	_, err = parseBadgeType("wizard")
	assert.ErrorContains(t, err, "badge_type")
}

func TestParsePaidStatus(t *testing.T) {
	p, err := parsePaidStatus("paid")
	require.NoError(t, err)
	assert.Equal(t, model.HasPaid, p)

	p, err = parsePaidStatus("need_not_pay")
	require.NoError(t, err)
	assert.Equal(t, model.NeedNotPay, p)

	_, err = parsePaidStatus("")
	assert.ErrorContains(t, err, "paid must be one of")
}

func TestRegisterCmd_PaidDefault(t *testing.T) {
	cmd := RegisterCmd(&AppContext{})
	flag := cmd.Flags().Lookup("paid")
	require.NotNil(t, flag)

	p, err := parsePaidStatus(flag.DefValue)
	require.NoError(t, err)
	assert.Equal(t, model.HasPaid, p)
	assert.NotNil(t, cmd.Flags().Lookup("badge-num"))
}

func TestFormatBadgeNum(t *testing.T) {
	n := 7
	assert.Equal(t, "7", formatBadgeNum(&n))
	assert.Equal(t, "-", formatBadgeNum(nil))
}
