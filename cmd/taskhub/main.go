// Command taskhub is the taskhub CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/xwindash/taskhub/internal/version"
)

const defaultServer = "http://localhost:8085"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "taskhub server URL")
		token     = flag.String("token", os.Getenv("TASKHUB_TOKEN"), "JWT auth token")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "projects":
		err = cli.cmdProjects(rest)
	case "project":
		err = cli.cmdProject(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "stats":
		err = cli.cmdStats(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskhub — xWin Dash task CLI

Usage:
  taskhub [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8085)
  --token   <token>  JWT auth token (or $TASKHUB_TOKEN)

Commands:
  version                       print version
  status                        show server status
  projects                      list projects
  project create <name>         create a project
  tasks <project-id>            list a project's tasks
  task create <project> <title> create a task
  task show <id>                show a task
  task start <id>               start a task
  task complete <id>            complete a task
  task cancel <id>              cancel a task
  task archive <id>             archive a task
  task assign <id> <user>       assign a task
  task progress <id> <0-100>    set task progress
  stats <project-id>            show project statistics
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("taskhub %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

// post performs a POST and decodes the JSON response into v (may be nil).
func (c *Client) post(path string, body io.Reader, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

// put performs a PUT and decodes the JSON response into v (may be nil).
func (c *Client) put(path string, body io.Reader, v any) error {
	return c.do(http.MethodPut, path, body, v)
}

func (c *Client) do(method, path string, body io.Reader, v any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	return nil
}

// --- projects ---

func (c *Client) cmdProjects(_ []string) error {
	var projects []map[string]any
	if err := c.get("/api/projects", &projects); err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("no projects")
		return nil
	}
	fmt.Printf("%-36s %-30s %-10s\n", "ID", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 80))
	for _, p := range projects {
		fmt.Printf("%-36s %-30s %-10s\n",
			strVal(p["id"]),
			truncate(strVal(p["name"]), 29),
			strVal(p["status"]),
		)
	}
	return nil
}

func (c *Client) cmdProject(args []string) error {
	if len(args) < 2 || args[0] != "create" {
		fmt.Fprintln(os.Stderr, "usage: taskhub project create <name>")
		os.Exit(1)
	}
	name := strings.Join(args[1:], " ")
	body := fmt.Sprintf(`{"name":%q,"created_by":"cli"}`, name)
	var result map[string]any
	if err := c.post("/api/projects", strings.NewReader(body), &result); err != nil {
		return err
	}
	fmt.Printf("created project %s\n", strVal(result["id"]))
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: taskhub tasks <project-id>")
		os.Exit(1)
	}
	var tasks []map[string]any
	if err := c.get("/api/projects/"+args[0]+"/tasks", &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-30s %-12s %-8s %5s\n", "ID", "TITLE", "STATUS", "PRIO", "PROG")
	fmt.Println(strings.Repeat("-", 96))
	for _, t := range tasks {
		fmt.Printf("%-36s %-30s %-12s %-8s %4.0f%%\n",
			strVal(t["id"]),
			truncate(strVal(t["title"]), 29),
			strVal(t["status"]),
			strVal(t["priority"]),
			floatVal(t["progress"]),
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: taskhub task <create|show|start|complete|cancel|archive|assign|progress> ...")
		os.Exit(1)
	}
	sub := args[0]
	rest := args[1:]

	switch sub {
	case "create":
		if len(rest) < 2 {
			return fmt.Errorf("usage: taskhub task create <project-id> <title>")
		}
		title := strings.Join(rest[1:], " ")
		body := fmt.Sprintf(`{"title":%q,"project_id":%q,"created_by":"cli"}`, title, rest[0])
		var result map[string]any
		if err := c.post("/api/tasks", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "show":
		var t map[string]any
		if err := c.get("/api/tasks/"+rest[0], &t); err != nil {
			return err
		}
		out, _ := json.MarshalIndent(t, "", "  ")
		fmt.Println(string(out))
	case "start", "complete", "cancel", "archive":
		var t map[string]any
		if err := c.post("/api/tasks/"+rest[0]+"/"+sub, nil, &t); err != nil {
			return err
		}
		fmt.Printf("task %s is now %s\n", rest[0], strVal(t["status"]))
	case "assign":
		if len(rest) < 2 {
			return fmt.Errorf("usage: taskhub task assign <id> <user>")
		}
		body := fmt.Sprintf(`{"user_id":%q}`, rest[1])
		if err := c.put("/api/tasks/"+rest[0]+"/assignee", strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s assigned to %s\n", rest[0], rest[1])
	case "progress":
		if len(rest) < 2 {
			return fmt.Errorf("usage: taskhub task progress <id> <0-100>")
		}
		body := fmt.Sprintf(`{"progress":%s}`, rest[1])
		if err := c.put("/api/tasks/"+rest[0]+"/progress", strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s progress set to %s%%\n", rest[0], rest[1])
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- stats ---

func (c *Client) cmdStats(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: taskhub stats <project-id>")
		os.Exit(1)
	}
	var stats map[string]any
	if err := c.get("/api/projects/"+args[0]+"/stats", &stats); err != nil {
		return err
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
	return nil
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func floatVal(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
