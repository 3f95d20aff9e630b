// Package format holds the two collaborators a generation task hands its
// output to: a Formatter that rewrites generated source and a Writer that
// persists it.
package format

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Formatter rewrites one generated file. path is the file's output path,
// used by formatters that infer the parser from the extension.
type Formatter interface {
	Name() string
	Format(ctx context.Context, path string, src []byte) ([]byte, error)
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "passthrough":
		return Passthrough{}, nil
	case "prettier":
		return &Prettier{}, nil
	}
	return nil, fmt.Errorf("unknown formatter %q (valid: passthrough, prettier)", name)
}

// Passthrough only normalises line endings and trailing whitespace.
type Passthrough struct{}

func (Passthrough) Name() string { return "passthrough" }

func (Passthrough) Format(_ context.Context, _ string, src []byte) ([]byte, error) {
	text := strings.ReplaceAll(string(src), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	return []byte(out + "\n"), nil
}

// DefaultPrettierCommand runs the project-local prettier without installing it.
var DefaultPrettierCommand = []string{"npx", "--no-install", "prettier"}

// Prettier pipes each file through an external prettier process.
type Prettier struct {
	// Command overrides DefaultPrettierCommand.
	Command []string
}

func (p *Prettier) Name() string { return "prettier" }

func (p *Prettier) Format(ctx context.Context, path string, src []byte) ([]byte, error) {
	command := p.Command
	if len(command) == 0 {
		command = DefaultPrettierCommand
	}
	args := append(append([]string{}, command[1:]...), "--stdin-filepath", path)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("prettier %s: %s", path, msg)
	}
	return stdout.Bytes(), nil
}
