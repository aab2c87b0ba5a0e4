package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

var ErrCommandEmpty = errors.New("command is empty")
var ErrProcessCmdFailed = errors.New("process cmd failed")
var ErrExecuteCmdFailed = errors.New("execute cmd failed")
var ErrToolMissing = errors.New("required tool not found on PATH")

// TailLines is how much of the tool output is echoed back on failure.
const TailLines = 10

type CommandExecutor interface {
	CheckTools() error
	Dump(ctx context.Context, uri string, database string, archivePath string) error
	Restore(ctx context.Context, uri string, database string, archivePath string) error
}

// Executor renders the dump/restore command templates and runs the resulting
// external tools, capturing their combined output for error reporting.
type Executor struct {
	dumpCmdTemplate    string
	restoreCmdTemplate string
	logger             *zap.SugaredLogger
}

func NewExecutor(dumpCmdTemplate string, restoreCmdTemplate string, logger *zap.SugaredLogger) CommandExecutor {
	return &Executor{
		dumpCmdTemplate:    dumpCmdTemplate,
		restoreCmdTemplate: restoreCmdTemplate,
		logger:             logger,
	}
}

// CheckTools resolves the binary of each command template on PATH before any
// network activity happens.
func (e *Executor) CheckTools() error {
	for _, tmpl := range []string{e.dumpCmdTemplate, e.restoreCmdTemplate} {
		cmdProcessed, err := e.processCmd(tmpl, "", "", "")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProcessCmdFailed, err)
		}
		if len(cmdProcessed) == 0 {
			return ErrCommandEmpty
		}
		if _, err := exec.LookPath(cmdProcessed[0]); err != nil {
			return fmt.Errorf("%w: %s (install the MongoDB database tools)", ErrToolMissing, cmdProcessed[0])
		}
	}
	return nil
}

func (e *Executor) Dump(ctx context.Context, uri string, database string, archivePath string) error {
	return e.run(ctx, e.dumpCmdTemplate, uri, database, archivePath)
}

func (e *Executor) Restore(ctx context.Context, uri string, database string, archivePath string) error {
	return e.run(ctx, e.restoreCmdTemplate, uri, database, archivePath)
}

func (e *Executor) run(ctx context.Context, cmdTemplate string, uri string, database string, archivePath string) error {
	cmdProcessed, err := e.processCmd(cmdTemplate, uri, database, archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcessCmdFailed, err)
	}
	if len(cmdProcessed) == 0 {
		return ErrCommandEmpty
	}

	e.logger.Infow("executing command", "cmd", cmdProcessed[0], "db", database)
	cmd := exec.CommandContext(ctx, cmdProcessed[0], cmdProcessed[1:]...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err = cmd.Run(); err != nil {
		return fmt.Errorf("%w: cmd=%s db=%s err=%v output:\n%s",
			ErrExecuteCmdFailed, cmdProcessed[0], database, err, tail(output.String(), TailLines))
	}
	return nil
}

func (e *Executor) processCmd(cmdTemplate string, uri string, database string, archivePath string) ([]string, error) {
	cmdOptions := map[string]string{
		"uri":     uri,
		"db":      database,
		"archive": archivePath,
	}
	tmpl, err := template.New("cmd").Parse(cmdTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, cmdOptions); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	cmdProcessed, err := shlex.Split(sb.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	return cmdProcessed, nil
}

func tail(output string, num int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > num {
		lines = lines[len(lines)-num:]
	}
	return strings.Join(lines, "\n")
}
