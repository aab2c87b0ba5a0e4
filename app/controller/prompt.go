package controller

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator yes/no questions on the terminal. Every answer
// defaults to "no" so an accidental Enter never advances the pipeline.
type Prompter interface {
	Confirm(question string) (bool, error)
	ConfirmToken(question string, token string) (bool, error)
}

type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm asks a y/N question. Only "y" or "yes" (any case) counts as yes.
func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// ConfirmToken requires the exact token to be typed, case-sensitively. Used
// for the production-endpoint gate where a plain y/N is too easy.
func (p *TerminalPrompter) ConfirmToken(question string, token string) (bool, error) {
	fmt.Fprintf(p.out, "%s Type %q to continue: ", question, token)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	return answer == token, nil
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	// A closed stdin reads as an empty answer, which every prompt treats
	// as a decline.
	return strings.TrimSpace(line), nil
}
