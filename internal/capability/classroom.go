package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GoogleClassroom implements Coursework against the Classroom v1 REST API.
type GoogleClassroom struct {
	g *googleClient
}

func NewGoogleClassroom(baseURL, token string) *GoogleClassroom {
	return &GoogleClassroom{g: newGoogleClient(baseURL, token)}
}

func (c *GoogleClassroom) ListCourses(ctx context.Context) ([]Course, error) {
	q := url.Values{}
	q.Set("courseStates", "ACTIVE")
	var out struct {
		Courses []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Section       string `json:"section"`
			AlternateLink string `json:"alternateLink"`
		} `json:"courses"`
	}
	if err := c.g.do(ctx, http.MethodGet, "/classroom/v1/courses", q, nil, &out); err != nil {
		return nil, err
	}
	courses := make([]Course, 0, len(out.Courses))
	for _, cc := range out.Courses {
		courses = append(courses, Course{
			ID:            cc.ID,
			Name:          cc.Name,
			Section:       cc.Section,
			AlternateLink: cc.AlternateLink,
		})
	}
	return courses, nil
}

func (c *GoogleClassroom) ListCourseWork(ctx context.Context, courseID string) ([]CourseWork, error) {
	var out struct {
		CourseWork []struct {
			Title         string `json:"title"`
			AlternateLink string `json:"alternateLink"`
			DueDate       *struct {
				Year  int `json:"year"`
				Month int `json:"month"`
				Day   int `json:"day"`
			} `json:"dueDate"`
		} `json:"courseWork"`
	}
	if err := c.g.do(ctx, http.MethodGet, "/classroom/v1/courses/"+courseID+"/courseWork", nil, nil, &out); err != nil {
		return nil, err
	}
	work := make([]CourseWork, 0, len(out.CourseWork))
	for _, w := range out.CourseWork {
		due := ""
		if w.DueDate != nil {
			due = fmt.Sprintf("%04d-%02d-%02d", w.DueDate.Year, w.DueDate.Month, w.DueDate.Day)
		}
		work = append(work, CourseWork{
			Title:         w.Title,
			DueDate:       due,
			AlternateLink: w.AlternateLink,
		})
	}
	return work, nil
}

func (c *GoogleClassroom) ListAnnouncements(ctx context.Context, courseID string) ([]Announcement, error) {
	var out struct {
		Announcements []struct {
			Text          string `json:"text"`
			AlternateLink string `json:"alternateLink"`
		} `json:"announcements"`
	}
	if err := c.g.do(ctx, http.MethodGet, "/classroom/v1/courses/"+courseID+"/announcements", nil, nil, &out); err != nil {
		return nil, err
	}
	anns := make([]Announcement, 0, len(out.Announcements))
	for _, a := range out.Announcements {
		anns = append(anns, Announcement{Text: a.Text, AlternateLink: a.AlternateLink})
	}
	return anns, nil
}
