package controller

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "lowercase y", input: "y\n", expected: true},
		{name: "uppercase y", input: "Y\n", expected: true},
		{name: "yes word", input: "yes\n", expected: true},
		{name: "empty defaults to no", input: "\n", expected: false},
		{name: "explicit no", input: "n\n", expected: false},
		{name: "garbage is no", input: "sure why not\n", expected: false},
		{name: "closed stdin is no", input: "", expected: false},
		{name: "whitespace around answer", input: "  y  \n", expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			prompter := NewTerminalPrompter(strings.NewReader(tc.input), &out)
			got, err := prompter.Confirm("Continue?")
			if err != nil {
				t.Fatalf("Confirm returned error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("Expected %v for input %q, got %v", tc.expected, tc.input, got)
			}
			if !strings.Contains(out.String(), "[y/N]") {
				t.Fatalf("Expected y/N marker in prompt, got %q", out.String())
			}
		})
	}
}

func TestConfirmToken(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "exact token", input: "YES\n", expected: true},
		{name: "token without newline", input: "YES", expected: true},
		{name: "lowercase rejected", input: "yes\n", expected: false},
		{name: "single y rejected", input: "y\n", expected: false},
		{name: "empty rejected", input: "\n", expected: false},
		{name: "closed stdin rejected", input: "", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			prompter := NewTerminalPrompter(strings.NewReader(tc.input), &out)
			got, err := prompter.ConfirmToken("Danger ahead.", "YES")
			if err != nil {
				t.Fatalf("ConfirmToken returned error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("Expected %v for input %q, got %v", tc.expected, tc.input, got)
			}
		})
	}
}
