package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommission(t *testing.T, trainerID string, percent int, active bool) *CourseCommission {
	t.Helper()
	c, err := New("course-1", trainerID, percent, "admin-1", "", time.Now())
	require.NoError(t, err)
	c.IsActive = active
	return c
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		course  string
		trainer string
		percent int
		wantErr error
	}{
		{"Valid", "course-1", "trainer-1", 40, nil},
		{"ZeroPercent", "course-1", "trainer-1", 0, nil},
		{"FullPercent", "course-1", "trainer-1", 100, nil},
		{"AboveHundred", "course-1", "trainer-1", 101, ErrInvalidPercent},
		{"Negative", "course-1", "trainer-1", -1, ErrInvalidPercent},
		{"MissingCourse", " ", "trainer-1", 10, ErrInvalidCourse},
		{"MissingTrainer", "course-1", "", 10, ErrInvalidTrainer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.course, tc.trainer, tc.percent, "admin-1", "notes", time.Now())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.IsActive)
			assert.Equal(t, "admin-1", c.CreatedBy)
			assert.Equal(t, "admin-1", c.UpdatedBy)
		})
	}
}

func TestComputePayouts_FloorAndRemainder(t *testing.T) {
	commissions := []*CourseCommission{
		newCommission(t, "trainer-b", 35, true),
		newCommission(t, "trainer-a", 40, true),
	}

	payouts := ComputePayouts(commissions, 100)

	require.Len(t, payouts, 2)
	assert.Equal(t, "trainer-a", payouts[0].TrainerID)
	assert.Equal(t, int64(40), payouts[0].Amount)
	assert.Equal(t, "trainer-b", payouts[1].TrainerID)
	assert.Equal(t, int64(35), payouts[1].Amount)
	assert.Equal(t, int64(25), 100-TotalPaid(payouts), "platform keeps the remainder")
}

func TestComputePayouts_Rounding(t *testing.T) {
	testCases := []struct {
		name     string
		percent  int
		sale     int64
		expected []int64
	}{
		{"FloorsFraction", 33, 10, []int64{3}},
		{"DropsZeroPayout", 5, 10, nil},
		{"ZeroPercent", 0, 1000, nil},
		{"FullShare", 100, 7, []int64{7}},
		{"ZeroSale", 50, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payouts := ComputePayouts([]*CourseCommission{newCommission(t, "trainer-a", tc.percent, true)}, tc.sale)
			var amounts []int64
			for _, p := range payouts {
				amounts = append(amounts, p.Amount)
			}
			assert.Equal(t, tc.expected, amounts)
		})
	}
}

func TestComputePayouts_SkipsInactive(t *testing.T) {
	commissions := []*CourseCommission{
		newCommission(t, "trainer-a", 40, true),
		newCommission(t, "trainer-b", 60, false),
	}

	payouts := ComputePayouts(commissions, 100)
	require.Len(t, payouts, 1)
	assert.Equal(t, "trainer-a", payouts[0].TrainerID)
}

func TestAllocationWarning(t *testing.T) {
	commissions := []*CourseCommission{
		newCommission(t, "trainer-a", 70, true),
		newCommission(t, "trainer-b", 40, true),
		newCommission(t, "trainer-c", 90, false),
	}

	assert.Equal(t, 110, ActiveTotal(commissions))
	assert.Equal(t, "active commissions for course course-1 total 110%, above 100%", AllocationWarning("course-1", commissions))
	assert.Empty(t, AllocationWarning("course-1", commissions[:1]))
}
