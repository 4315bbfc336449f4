package udns

import "context"

const tasksPath = "/v1/tasks"

func taskPath(taskID string) string {
	return joinPath(tasksPath, taskID)
}

// Tasks lists the user's background tasks.
func (c *Client) Tasks(ctx context.Context, opts *ListOptions) (*Response, error) {
	return c.Get(ctx, tasksPath, opts.Values())
}

// Task returns one task's status record: code, message, and, once complete,
// hasData and resultUri.
func (c *Client) Task(ctx context.Context, taskID string) (*Response, error) {
	return c.Get(ctx, taskPath(taskID), nil)
}

// ClearTask deletes a finished task and its stored result.
func (c *Client) ClearTask(ctx context.Context, taskID string) (*Response, error) {
	return c.Delete(ctx, taskPath(taskID))
}

// Task is the typed form of a task status record.
type Task struct {
	TaskID    string `json:"taskId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	HasData   bool   `json:"hasData"`
	ResultURI string `json:"resultUri"`
}

// TaskList is the body of GET /v1/tasks.
type TaskList struct {
	Tasks      []Task     `json:"tasks"`
	ResultInfo ResultInfo `json:"resultInfo"`
}
