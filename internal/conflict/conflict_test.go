package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coursesched/internal/meets"
	"coursesched/internal/model"
)

func course(t *testing.T, id, raw string) model.Course {
	t.Helper()
	m, err := meets.Parse(raw)
	return model.Course{ID: id, Title: id, Meets: raw, Meeting: m, MeetsErr: err}
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Course
		want bool
	}{
		{"overlapping same term", course(t, "F101", "MW 9:00-9:50"), course(t, "F102", "MW 9:30-10:20"), true},
		{"no shared day", course(t, "F101", "MW 9:00-9:50"), course(t, "F102", "TuTh 9:00-9:50"), false},
		{"touching boundary", course(t, "F101", "MW 9:00-9:50"), course(t, "F102", "MW 9:50-10:40"), false},
		{"different terms", course(t, "F101", "MW 9:00-9:50"), course(t, "W101", "MW 9:00-9:50"), false},
		{"one shared day", course(t, "S101", "MWF 13:00-13:50"), course(t, "S202", "F 13:30-14:50"), true},
		{"malformed meets", course(t, "F101", "MW 9:00-9:50"), course(t, "F102", "9:00-9:50"), false},
		{"unknown term", course(t, "X101", "MW 9:00-9:50"), course(t, "X102", "MW 9:00-9:50"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Conflicts(tt.a, tt.b))
			assert.Equal(t, tt.want, Conflicts(tt.b, tt.a))
		})
	}
}

func TestNeverConflictsWithItself(t *testing.T) {
	for _, raw := range []string{"MW 9:00-9:50", "TuTh 14:00-15:20", "bogus"} {
		c := course(t, "F213", raw)
		assert.False(t, Conflicts(c, c), raw)
	}
}

func TestDifferentTermsNeverConflict(t *testing.T) {
	raws := []string{"MW 9:00-9:50", "MTuWThF 8:00-17:00", "F 9:00-9:50"}
	for _, ta := range model.Terms() {
		for _, tb := range model.Terms() {
			if ta == tb {
				continue
			}
			for _, ra := range raws {
				for _, rb := range raws {
					a := course(t, string(ta.Letter())+"101", ra)
					b := course(t, string(tb.Letter())+"202", rb)
					assert.False(t, Conflicts(a, b), "%s %s vs %s %s", ta, ra, tb, rb)
				}
			}
		}
	}
}

func TestHasConflict(t *testing.T) {
	a := course(t, "F101", "MW 9:00-9:50")
	b := course(t, "F102", "MW 9:30-10:20")
	c := course(t, "F103", "TuTh 9:00-9:50")

	assert.False(t, HasConflict(a, nil))
	assert.False(t, HasConflict(a, []model.Course{a}))
	assert.False(t, HasConflict(a, []model.Course{a, c}))
	assert.True(t, HasConflict(a, []model.Course{c, b}))

	got := Conflicting(a, []model.Course{a, b, c})
	if assert.Len(t, got, 1) {
		assert.Equal(t, "F102", got[0].ID)
	}
}

func TestMalformedNeverDisabled(t *testing.T) {
	broken := course(t, "F999", "TBA")
	assert.Error(t, broken.MeetsErr)

	everything := []model.Course{
		course(t, "F101", "MTuWThF 0:00-23:59"),
		course(t, "F102", "M 9:00-9:50"),
		course(t, "F103", "nonsense"),
	}
	assert.False(t, HasConflict(broken, everything))
}
