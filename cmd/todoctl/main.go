// Command todoctl is a terminal front end for the todo GraphQL API.
//
//	todoctl list
//	todoctl get 1
//	todoctl create -title "Write report" -user 1
//	todoctl update 1 -completed true
//	todoctl delete 1
//
// The endpoint is read from TODO_ENDPOINT (default http://localhost:4000/graphql).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skryldev/graphql-todo/client"
	"github.com/Skryldev/graphql-todo/logging"
)

// EndpointEnvVar overrides client.DefaultEndpoint.
const EndpointEnvVar = "TODO_ENDPOINT"

func main() {
	_ = godotenv.Load()

	endpoint := os.Getenv(EndpointEnvVar)
	if endpoint == "" {
		endpoint = client.DefaultEndpoint
	}
	logger := logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(endpoint, client.WithLogger(logger))
	if err := run(ctx, c, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "todoctl:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New(`usage: todoctl <command> [args]

Commands:
  list                                           List todos, newest first
  get ID                                         Show one todo
  create -title T -user U                        Create a todo
  update ID [-title T] [-completed true|false]   Change a todo
  delete ID                                      Delete a todo`)

func run(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "list":
		todos, err := c.GetTodos(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDONE\tTITLE\tOWNER")
		for _, t := range todos {
			owner := ""
			if t.User != nil {
				owner = t.User.Name
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, mark(t.Completed), t.Title, owner)
		}
		return tw.Flush()

	case "get":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		t, err := c.GetTodo(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("todo %d not found", id)
		}
		printTodo(out, t)
		if t.User != nil {
			fmt.Fprintf(out, "owner:     %s <%s>\n", t.User.Name, t.User.Email)
		}
		return nil

	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		title := fs.String("title", "", "todo title")
		user := fs.Int("user", 0, "owner user id")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("create: %w", err)
		}
		if *title == "" || *user <= 0 {
			return errors.New("create: -title and -user are required")
		}
		t, err := c.CreateTodo(ctx, *title, *user)
		if err != nil {
			return err
		}
		printTodo(out, t)
		return nil

	case "update":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		var title *string
		var completed *bool
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		fs.Func("title", "new title", func(s string) error { title = &s; return nil })
		fs.Func("completed", "true or false", func(s string) error {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			completed = &b
			return nil
		})
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		t, err := c.UpdateTodo(ctx, id, title, completed)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("todo %d not found", id)
		}
		printTodo(out, t)
		return nil

	case "delete":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		removed, err := c.DeleteTodo(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("todo %d not found", id)
		}
		fmt.Fprintf(out, "deleted todo %d\n", id)
		return nil

	default:
		return errUsage
	}
}

func parseID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing todo ID")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo ID %q", args[0])
	}
	return id, nil
}

func printTodo(out io.Writer, t *client.Todo) {
	fmt.Fprintf(out, "id:        %d\n", t.ID)
	fmt.Fprintf(out, "title:     %s\n", t.Title)
	fmt.Fprintf(out, "completed: %v\n", t.Completed)
}

func mark(done bool) string {
	if done {
		return "x"
	}
	return ""
}
