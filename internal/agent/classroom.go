package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/classify"
	"github.com/valethq/valet/internal/netprobe"
)

const (
	classroomIntentCourses       classify.Label = "COURSES"
	classroomIntentAssignments   classify.Label = "ASSIGNMENTS"
	classroomIntentAnnouncements classify.Label = "ANNOUNCEMENTS"
)

const classroomListLimit = 5

type classroomAgent struct {
	classroom  capability.Coursework
	llm        capability.LLM
	prober     netprobe.Prober
	classifier *classify.Classifier
	fastModel  string
}

// NewClassroomCard builds the card that surfaces Google Classroom
// courses, assignments and announcements.
func NewClassroomCard(classroom capability.Coursework, llm capability.LLM, prober netprobe.Prober, fastModel string) *Card {
	a := &classroomAgent{
		classroom: classroom,
		llm:       llm,
		prober:    prober,
		fastModel: fastModel,
	}
	a.classifier = classify.New(
		[]classify.KeywordRule{
			{Label: classroomIntentAssignments, Keywords: []string{"assignment", "homework", "due", "coursework", "submit"}},
			{Label: classroomIntentAnnouncements, Keywords: []string{"announcement", "announce", "posted", "update from"}},
			{Label: classroomIntentCourses, Keywords: []string{"my courses", "my classes", "which courses", "list courses", "enrolled"}},
		},
		llm,
		fastModel,
		`Classify this Google Classroom request: %q

Pick one:
COURSES: list enrolled courses.
ASSIGNMENTS: pending homework or coursework.
ANNOUNCEMENTS: recent announcements from a course.

Answer with ONLY one word.`,
		[]classify.Label{classroomIntentCourses, classroomIntentAssignments, classroomIntentAnnouncements},
		classroomIntentAssignments,
	)
	return &Card{
		Name:        "Classroom Agent",
		Description: "Lists courses, pending assignments, and announcements from Google Classroom.",
		Triggers:    []string{"classroom", "course", "courses", "assignment", "assignments", "homework", "announcement", "announcements", "grades", "class", "classes"},
		IntentID:    "classroom",
		Execute:     a.execute,
	}
}

func (a *classroomAgent) execute(ctx context.Context, taskID, text string, _ RequestContext) (string, error) {
	if !a.prober.IsOnline(ctx) {
		return "", nil
	}

	courses, err := a.classroom.ListCourses(ctx)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not access Classroom: %v", err), nil
	}
	if len(courses) == 0 {
		return "\n\n🏫 You are not enrolled in any active courses.", nil
	}

	switch a.classifier.Classify(ctx, text) {
	case classroomIntentCourses:
		return formatCourses(courses), nil
	case classroomIntentAnnouncements:
		course, msg := a.resolveCourse(ctx, text, courses)
		if course == nil {
			return msg, nil
		}
		return a.listAnnouncements(ctx, *course)
	default:
		course, msg := a.resolveCourse(ctx, text, courses)
		if course == nil {
			return msg, nil
		}
		return a.listAssignments(ctx, *course)
	}
}

// resolveCourse picks the course the request refers to. When it returns
// nil, msg carries the user-facing explanation.
func (a *classroomAgent) resolveCourse(ctx context.Context, text string, courses []capability.Course) (*capability.Course, string) {
	lowered := strings.ToLower(text)
	for i, c := range courses {
		if c.Name != "" && strings.Contains(lowered, strings.ToLower(c.Name)) {
			return &courses[i], ""
		}
	}

	prompt := fmt.Sprintf(`The user asked: %q
Which of these courses do they mean? %s
Respond with ONLY the course name, or NONE if unclear.`, text, courseNames(courses))
	if raw, err := a.llm.Generate(ctx, prompt, a.fastModel); err == nil {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "`'\""))
		for i, c := range courses {
			if name != "" && name != "none" && strings.Contains(strings.ToLower(c.Name), name) {
				return &courses[i], ""
			}
		}
	}

	if len(courses) == 1 {
		return &courses[0], ""
	}
	return nil, "\n\nℹ️ Which course do you mean?" + formatCourses(courses)
}

func (a *classroomAgent) listAssignments(ctx context.Context, course capability.Course) (string, error) {
	work, err := a.classroom.ListCourseWork(ctx, course.ID)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not list assignments for **%s**: %v", course.Name, err), nil
	}
	if len(work) == 0 {
		return fmt.Sprintf("\n\n📚 No assignments posted in **%s**.", course.Name), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n📚 **Assignments in %s**\n", course.Name)
	for i, w := range work {
		if i >= classroomListLimit {
			break
		}
		due := w.DueDate
		if due == "" {
			due = "no due date"
		}
		fmt.Fprintf(&b, "- %s (due: %s)\n", w.Title, due)
	}
	return b.String(), nil
}

func (a *classroomAgent) listAnnouncements(ctx context.Context, course capability.Course) (string, error) {
	announcements, err := a.classroom.ListAnnouncements(ctx, course.ID)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not list announcements for **%s**: %v", course.Name, err), nil
	}
	if len(announcements) == 0 {
		return fmt.Sprintf("\n\n📣 No announcements in **%s**.", course.Name), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n📣 **Announcements in %s**\n", course.Name)
	for i, an := range announcements {
		if i >= classroomListLimit {
			break
		}
		text := an.Text
		if len(text) > 200 {
			text = text[:200] + "…"
		}
		fmt.Fprintf(&b, "- %s\n", text)
	}
	return b.String(), nil
}

func formatCourses(courses []capability.Course) string {
	var b strings.Builder
	b.WriteString("\n\n🏫 **Your Courses**\n")
	for i, c := range courses {
		if i >= classroomListLimit {
			break
		}
		fmt.Fprintf(&b, "- %s\n", c.Name)
	}
	return b.String()
}

func courseNames(courses []capability.Course) string {
	names := make([]string, 0, len(courses))
	for _, c := range courses {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
