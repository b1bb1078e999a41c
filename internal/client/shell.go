package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/GophTodo/internal/service"
)

const helpText = "Available commands: help, init, profile, add <text>, list [filter], get <i>, mark <i>, remove <i>, whoami, exit"

// Shell is the interactive todo prompt.
type Shell struct {
	API *API
	In  io.Reader
	Out io.Writer
}

// Run reads commands until exit or end of input.
func (s *Shell) Run(ctx context.Context) {
	scanner := bufio.NewScanner(s.In)
	for {
		fmt.Fprint(s.Out, "gophtodo> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.Out)
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if cmd == "exit" {
			fmt.Fprintln(s.Out, "Bye")
			return
		}
		if err := s.exec(ctx, cmd, rest); err != nil {
			fmt.Fprintf(s.Out, "error: %v\n", err)
		}
	}
}

func (s *Shell) exec(ctx context.Context, cmd, rest string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(s.Out, helpText)
	case "whoami":
		info, err := s.API.Login(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "identity %s (profile initialized: %v)\n", info.Identity, info.Initialized)
	case "init":
		ref, err := s.API.InitProfile(ctx)
		if err != nil {
			return err
		}
		s.printProfile(ref)
	case "profile":
		ref, err := s.API.Profile(ctx)
		if err != nil {
			return err
		}
		s.printProfile(ref)
	case "add":
		task, profile, err := s.API.Add(ctx, rest)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "added #%d\n", task.Task.Index)
		s.printProfile(profile)
	case "list":
		refs, err := s.API.List(ctx, rest)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			fmt.Fprintln(s.Out, "No todos")
		}
		for _, r := range refs {
			s.printTodo(r)
		}
	case "get", "mark", "remove":
		index, err := parseIndex(cmd, rest)
		if err != nil {
			return err
		}
		return s.execIndexed(ctx, cmd, index)
	default:
		fmt.Fprintln(s.Out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *Shell) execIndexed(ctx context.Context, cmd string, index uint8) error {
	switch cmd {
	case "get":
		ref, err := s.API.Get(ctx, index)
		if err != nil {
			return err
		}
		s.printTodo(ref)
	case "mark":
		ref, err := s.API.Mark(ctx, index)
		if err != nil {
			return err
		}
		s.printTodo(ref)
	case "remove":
		ref, err := s.API.Remove(ctx, index)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "removed #%d\n", index)
		s.printProfile(ref)
	}
	return nil
}

func parseIndex(cmd, arg string) (uint8, error) {
	if arg == "" {
		return 0, fmt.Errorf("usage: %s <index>", cmd)
	}
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("index must be 0..255, got %q", arg)
	}
	return uint8(n), nil
}

func (s *Shell) printProfile(ref service.ProfileRef) {
	fmt.Fprintf(s.Out, "profile: next_index=%d task_count=%d\n", ref.Profile.NextIndex, ref.Profile.TaskCount)
}

func (s *Shell) printTodo(ref service.TaskRef) {
	mark := " "
	if ref.Task.Completed {
		mark = "x"
	}
	fmt.Fprintf(s.Out, "[%s] #%d %s\n", mark, ref.Task.Index, ref.Task.Content)
}
