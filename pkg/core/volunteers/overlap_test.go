package volunteers

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magfest/ubersystem/pkg/core/model"
)

func TestNoOverlap(t *testing.T) {
	tests := []struct {
		name     string
		existing *model.Job
		job      *model.Job
		want     bool
	}{
		{
			name:     "shared hour",
			existing: newJob("a", "arcade", 10, 2),
			job:      newJob("b", "arcade", 11, 2),
			want:     false,
		},
		{
			name:     "back to back same department",
			existing: newJob("a", "arcade", 10, 2),
			job:      newJob("b", "arcade", 12, 2),
			want:     true,
		},
		{
			name:     "back to back other department",
			existing: newJob("a", "arcade", 10, 2),
			job:      newJob("b", "tech", 12, 2),
			want:     true,
		},
		{
			name:     "gap between jobs",
			existing: newJob("a", "arcade", 10, 1),
			job:      newJob("b", "tech", 13, 1),
			want:     true,
		},
		{
			name:     "same job twice",
			existing: newJob("a", "arcade", 10, 2),
			job:      newJob("a", "arcade", 10, 2),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := working(newVolunteer("v", "arcade", "tech"), tt.existing)
			assert.Equal(t, tt.want, NoOverlap(tt.job, a))
		})
	}
}

func TestNoOverlap_Extra15(t *testing.T) {
	t.Run("previous job runs over into another department", func(t *testing.T) {
		prev := newJob("a", "arcade", 10, 2)
		prev.Extra15 = true
		a := working(newVolunteer("v"), prev)

		assert.False(t, NoOverlap(newJob("b", "tech", 12, 1), a))
		assert.True(t, NoOverlap(newJob("c", "arcade", 12, 1), a))
	})

	t.Run("new job runs over into another department", func(t *testing.T) {
		next := newJob("a", "tech", 14, 2)
		a := working(newVolunteer("v"), next)

		job := newJob("b", "arcade", 12, 2)
		job.Extra15 = true
		assert.False(t, NoOverlap(job, a))

		same := newJob("c", "tech", 12, 2)
		same.Extra15 = true
		assert.True(t, NoOverlap(same, a))
	})

	t.Run("buffer without an adjacent job", func(t *testing.T) {
		prev := newJob("a", "arcade", 8, 1)
		prev.Extra15 = true
		a := working(newVolunteer("v"), prev)
		assert.True(t, NoOverlap(newJob("b", "tech", 10, 1), a))
	})
}

func TestConflict_NamesTheOtherJob(t *testing.T) {
	existing := newJob("a", "arcade", 10, 2)
	a := working(newVolunteer("v"), existing)

	other := Conflict(newJob("b", "arcade", 11, 2), a)
	require.NotNil(t, other)
	assert.Equal(t, "Job a", other.Name)
}

// Whenever hours intersect the jobs clash; whenever they don't and no extra15
// adjacency applies, they don't
func TestNoOverlap_Symmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	depts := []string{"arcade", "tech"}

	for i := 0; i < 500; i++ {
		existing := newJob("a", depts[rng.Intn(2)], rng.Intn(12), 1+rng.Intn(3))
		existing.Extra15 = rng.Intn(2) == 0
		job := newJob("b", depts[rng.Intn(2)], rng.Intn(12), 1+rng.Intn(3))
		job.Extra15 = rng.Intn(2) == 0
		a := working(newVolunteer("v"), existing)

		intersects := job.StartTime.Before(existing.EndTime()) && existing.StartTime.Before(job.EndTime())
		crossDept := existing.DepartmentID != job.DepartmentID
		adjacentBefore := existing.EndTime().Equal(job.StartTime) && existing.Extra15 && crossDept
		adjacentAfter := job.EndTime().Equal(existing.StartTime) && job.Extra15 && crossDept

		want := !intersects && !adjacentBefore && !adjacentAfter
		assert.Equal(t, want, NoOverlap(job, a), "existing=%+v job=%+v", existing, job)
	}
}

func TestWorkingLimitOK(t *testing.T) {
	limited := func(j *model.Job, hours int) *model.Job {
		j.Department.MaxConsecutiveHours = hours
		return j
	}

	tests := []struct {
		name   string
		worked []*model.Job
		job    *model.Job
		want   bool
	}{
		{
			name:   "within the limit",
			worked: []*model.Job{newJob("a", "arcade", 8, 2)},
			job:    limited(newJob("j", "arcade", 10, 2), 4),
			want:   true,
		},
		{
			name:   "over the limit",
			worked: []*model.Job{newJob("a", "arcade", 8, 2)},
			job:    limited(newJob("j", "arcade", 10, 3), 4),
			want:   false,
		},
		{
			name:   "no limit configured",
			worked: []*model.Job{newJob("a", "arcade", 8, 2)},
			job:    newJob("j", "arcade", 10, 6),
			want:   true,
		},
		{
			name:   "a gap ends the run",
			worked: []*model.Job{newJob("a", "arcade", 8, 2), newJob("b", "tech", 12, 3)},
			job:    limited(newJob("j", "arcade", 16, 4), 4),
			want:   true,
		},
		{
			name:   "hours in other departments count",
			worked: []*model.Job{newJob("b", "tech", 10, 1)},
			job:    limited(newJob("j", "arcade", 11, 2), 2),
			want:   false,
		},
		{
			name:   "a neighbour's limit applies to an unlimited job",
			worked: []*model.Job{limited(newJob("b", "tech", 10, 1), 1)},
			job:    newJob("j", "arcade", 11, 1),
			want:   false,
		},
		{
			name:   "a later neighbour's limit applies too",
			worked: []*model.Job{limited(newJob("b", "tech", 12, 2), 3)},
			job:    limited(newJob("j", "arcade", 10, 2), 8),
			want:   false,
		},
		{
			name:   "the tightest limit wins",
			worked: []*model.Job{limited(newJob("b", "tech", 12, 3), 10)},
			job:    limited(newJob("j", "arcade", 10, 2), 5),
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := working(newVolunteer("v", "arcade", "tech"), tt.worked...)
			assert.Equal(t, tt.want, WorkingLimitOK(tt.job, a))
		})
	}
}
