package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/netprobe"
)

type fakeCoursework struct {
	courses       []capability.Course
	coursesErr    error
	work          map[string][]capability.CourseWork
	announcements map[string][]capability.Announcement
}

func (f *fakeCoursework) ListCourses(context.Context) ([]capability.Course, error) {
	return f.courses, f.coursesErr
}

func (f *fakeCoursework) ListCourseWork(_ context.Context, courseID string) ([]capability.CourseWork, error) {
	return f.work[courseID], nil
}

func (f *fakeCoursework) ListAnnouncements(_ context.Context, courseID string) ([]capability.Announcement, error) {
	return f.announcements[courseID], nil
}

func twoCourses() []capability.Course {
	return []capability.Course{
		{ID: "c1", Name: "Physics"},
		{ID: "c2", Name: "History"},
	}
}

func TestClassroomCardListsCourses(t *testing.T) {
	cw := &fakeCoursework{courses: twoCourses()}
	card := NewClassroomCard(cw, &fakeLLM{}, netprobe.Static(true), "fast")

	out, err := card.Execute(context.Background(), "T1", "which courses am I enrolled in", RequestContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "🏫 **Your Courses**")
	assert.Contains(t, out, "- Physics")
	assert.Contains(t, out, "- History")
}

func TestClassroomCardAssignmentsByCourseNameInText(t *testing.T) {
	cw := &fakeCoursework{
		courses: twoCourses(),
		work: map[string][]capability.CourseWork{
			"c1": {{Title: "Lab report", DueDate: "2026-01-10"}},
		},
	}
	card := NewClassroomCard(cw, &fakeLLM{}, netprobe.Static(true), "fast")

	out, err := card.Execute(context.Background(), "T1", "homework for physics", RequestContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "📚 **Assignments in Physics**")
	assert.Contains(t, out, "Lab report (due: 2026-01-10)")
}

func TestClassroomCardAmbiguousCourseAsks(t *testing.T) {
	cw := &fakeCoursework{courses: twoCourses()}
	llm := &fakeLLM{response: "NONE"}
	card := NewClassroomCard(cw, llm, netprobe.Static(true), "fast")

	out, err := card.Execute(context.Background(), "T1", "any homework due", RequestContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "Which course do you mean?")
	assert.Contains(t, out, "Physics")
	assert.Contains(t, out, "History")
}

func TestClassroomCardSingleCourseDefault(t *testing.T) {
	cw := &fakeCoursework{
		courses: []capability.Course{{ID: "c1", Name: "Physics"}},
		announcements: map[string][]capability.Announcement{
			"c1": {{Text: "Exam moved to Friday"}},
		},
	}
	llm := &fakeLLM{response: "NONE"}
	card := NewClassroomCard(cw, llm, netprobe.Static(true), "fast")

	out, err := card.Execute(context.Background(), "T1", "any announcements?", RequestContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "📣 **Announcements in Physics**")
	assert.Contains(t, out, "Exam moved to Friday")
}

func TestClassroomCardNoCourses(t *testing.T) {
	cw := &fakeCoursework{}
	card := NewClassroomCard(cw, &fakeLLM{}, netprobe.Static(true), "fast")

	out, err := card.Execute(context.Background(), "T1", "list my classes", RequestContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "not enrolled in any active courses")
}

func TestClassroomCardAuthErrorPropagates(t *testing.T) {
	cw := &fakeCoursework{coursesErr: capability.ErrNotAuthenticated}
	card := NewClassroomCard(cw, &fakeLLM{}, netprobe.Static(true), "fast")

	_, err := card.Execute(context.Background(), "T1", "list my classes", RequestContext{})
	assert.ErrorIs(t, err, capability.ErrNotAuthenticated)
}
