// Package clipboard copies job summaries out of the dashboard using whatever
// clipboard tool the host provides.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Command struct {
	Path string
	Args []string
}

type candidate struct {
	name string
	args []string
}

// Tools are tried in order per platform.
var candidates = map[string][]candidate{
	"darwin":  {{name: "pbcopy"}},
	"linux":   {{name: "wl-copy"}, {name: "xclip", args: []string{"-selection", "clipboard"}}, {name: "xsel", args: []string{"--clipboard", "--input"}}},
	"windows": {{name: "clip.exe"}},
}

func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	for _, c := range candidates[goos] {
		if path, err := lookPath(c.name); err == nil {
			return Command{Path: path, Args: c.args}, nil
		}
	}
	return Command{}, ErrToolNotFound
}

// Copier puts text on the clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// System copies through the host clipboard tool.
type System struct {
	GOOS     string
	LookPath func(string) (string, error)
}

func (s System) Copy(ctx context.Context, text string) error {
	goos, lookPath := s.GOOS, s.LookPath
	if goos == "" {
		goos = runtime.GOOS
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	cmdDef, err := SelectCommand(goos, lookPath)
	if err != nil {
		return err
	}
	return run(ctx, cmdDef, text)
}

func run(ctx context.Context, def Command, text string) error {
	cmd := exec.CommandContext(ctx, def.Path, def.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}
	if _, err := io.Copy(stdin, strings.NewReader(text)); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}

// Copy uses the host clipboard.
func Copy(ctx context.Context, text string) error {
	return System{}.Copy(ctx, text)
}
