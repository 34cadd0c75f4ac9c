package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Skryldev/graphql-todo/client"
	"github.com/Skryldev/graphql-todo/graph"
	"github.com/Skryldev/graphql-todo/internal/testdb"
	"github.com/Skryldev/graphql-todo/repo"
	"github.com/Skryldev/graphql-todo/store"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	database := testdb.Open(t)
	users := store.NewUserStore(repo.NewUserRepo(database))
	if _, err := users.CreateUser(context.Background(), "Ada", "ada@example.com"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	schema, err := graph.NewSchema(store.NewTodoStore(repo.NewTodoRepo(database)), users)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	srv := httptest.NewServer(&graph.Handler{Schema: schema})
	t.Cleanup(srv.Close)
	return client.New(srv.URL)
}

func runCmd(t *testing.T, c *client.Client, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), c, args, &out)
	return out.String(), err
}

func TestRun_Lifecycle(t *testing.T) {
	c := newClient(t)

	out, err := runCmd(t, c, "create", "-title", "Write report", "-user", "1")
	if err != nil || !strings.Contains(out, "title:     Write report") {
		t.Fatalf("create: %q, %v", out, err)
	}

	out, err = runCmd(t, c, "list")
	if err != nil || !strings.Contains(out, "Write report") || !strings.Contains(out, "Ada") {
		t.Fatalf("list: %q, %v", out, err)
	}

	out, err = runCmd(t, c, "update", "1", "-completed", "true")
	if err != nil || !strings.Contains(out, "completed: true") {
		t.Fatalf("update: %q, %v", out, err)
	}

	out, err = runCmd(t, c, "get", "1")
	if err != nil || !strings.Contains(out, "owner:     Ada <ada@example.com>") {
		t.Fatalf("get: %q, %v", out, err)
	}

	out, err = runCmd(t, c, "delete", "1")
	if err != nil || out != "deleted todo 1\n" {
		t.Fatalf("delete: %q, %v", out, err)
	}

	if _, err = runCmd(t, c, "delete", "1"); err == nil {
		t.Fatal("second delete should fail")
	}
}

func TestRun_Errors(t *testing.T) {
	c := newClient(t)

	cases := [][]string{
		{},
		{"frobnicate"},
		{"get"},
		{"get", "abc"},
		{"create", "-title", "no owner"},
		{"update", "1", "-completed", "maybe"},
	}
	for _, args := range cases {
		if _, err := runCmd(t, c, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}

	if _, err := runCmd(t, c); !errors.Is(err, errUsage) {
		t.Fatalf("no args: got %v, want usage", err)
	}

	_, err := runCmd(t, c, "create", "-title", "orphan", "-user", "42")
	if !client.IsCode(err, "CONFLICT") {
		t.Fatalf("unknown user: got %v, want CONFLICT", err)
	}
}
