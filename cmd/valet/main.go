// Command valet is a thin CLI over the valet server's HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/valethq/valet/internal/task"
)

var (
	app    = kingpin.New("valet", "Personal assistant task CLI")
	server = app.Flag("server", "Server base URL").Default("http://localhost:8000").Envar("VALET_SERVER").String()
	apiKey = app.Flag("api-key", "API key").Envar("VALET_API_KEY").String()

	submitCmd  = app.Command("submit", "Submit a request to the assistant")
	submitText = submitCmd.Arg("text", "Request text").Required().String()

	listCmd    = app.Command("list", "List tasks")
	listStatus = listCmd.Flag("status", "Filter by status").String()

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	completeCmd    = app.Command("complete", "Mark a task completed with an external result")
	completeID     = completeCmd.Arg("id", "Task ID").Required().String()
	completeResult = completeCmd.Flag("result", "Result text to attach").String()
)

var statusColors = map[task.Status]*color.Color{
	task.StatusPlanned:            color.New(color.FgCyan),
	task.StatusWaitingForInternet: color.New(color.FgYellow),
	task.StatusExecuting:          color.New(color.FgBlue),
	task.StatusCompleted:          color.New(color.FgGreen),
	task.StatusFailed:             color.New(color.FgRed),
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case submitCmd.FullCommand():
		err = handleSubmit(*submitText)
	case listCmd.FullCommand():
		err = handleList(*listStatus)
	case showCmd.FullCommand():
		err = handleShow(*showID)
	case completeCmd.FullCommand():
		err = handleComplete(*completeID, *completeResult)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func handleSubmit(text string) error {
	req := &task.SubmitRequest{
		Text:       text,
		ClientTime: time.Now().Format(time.RFC3339),
	}
	var resp struct {
		Task *task.Task `json:"task"`
	}
	if err := call(http.MethodPost, "/agent", req, &resp); err != nil {
		return err
	}
	fmt.Printf("Submitted task %s\n", color.CyanString(resp.Task.ID))
	printTask(resp.Task)
	return nil
}

func handleList(status string) error {
	path := "/tasks"
	if status != "" {
		path += "?status=" + status
	}
	var resp struct {
		Tasks []*task.Task `json:"tasks"`
	}
	if err := call(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}
	if len(resp.Tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, t := range resp.Tasks {
		c, ok := statusColors[t.Status]
		if !ok {
			c = color.New(color.Reset)
		}
		fmt.Printf("%s  %-22s  %s\n", t.ID, c.Sprint(t.Status), t.OriginalRequest)
	}
	return nil
}

func handleShow(id string) error {
	var resp struct {
		Task *task.Task `json:"task"`
	}
	if err := call(http.MethodGet, "/tasks/"+id, nil, &resp); err != nil {
		return err
	}
	printTask(resp.Task)
	return nil
}

func handleComplete(id, result string) error {
	req := &task.CompleteRequest{Result: result}
	var resp struct {
		Task *task.Task `json:"task"`
	}
	if err := call(http.MethodPost, "/tasks/"+id+"/complete", req, &resp); err != nil {
		return err
	}
	fmt.Printf("Task %s marked %s\n", resp.Task.ID, color.GreenString(string(resp.Task.Status)))
	return nil
}

func printTask(t *task.Task) {
	c, ok := statusColors[t.Status]
	if !ok {
		c = color.New(color.Reset)
	}
	fmt.Printf("ID:      %s\n", t.ID)
	fmt.Printf("Status:  %s\n", c.Sprint(t.Status))
	fmt.Printf("Model:   %s\n", t.ModelUsed)
	fmt.Printf("Online:  %t\n", t.RequiresInternet)
	fmt.Printf("Request: %s\n", t.OriginalRequest)
	fmt.Printf("Plan:\n%s\n", t.Plan)
	for _, s := range t.Sources {
		fmt.Printf("Source:  %s (%s)\n", s.Title, s.URL)
	}
}

func call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
