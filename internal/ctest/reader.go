// Package ctest invokes the test listing command and parses its JSON output.
package ctest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/greenfuze/rig/internal/ports"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// DefaultCommand is the reference test listing invocation.
var DefaultCommand = []string{"ctest", "--show-only=json-v1"}

// Document is the parsed test listing.
type Document struct {
	Kind           string         `json:"kind"`
	Tests          []TestCase     `json:"tests"`
	BacktraceGraph BacktraceGraph `json:"backtraceGraph"`
}

// TestCase is one registered test.
type TestCase struct {
	Name       string     `json:"name"`
	Command    []string   `json:"command"`
	Properties []Property `json:"properties"`
	Backtrace  *int       `json:"backtrace"`
}

// Property is one test property. Value is left dynamic because CTest emits
// strings, numbers, and lists depending on the property.
type Property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BacktraceGraph mirrors the test listing's backtrace tables. It is
// structurally identical to the codemodel's graph.
type BacktraceGraph struct {
	Nodes    []BacktraceNode `json:"nodes"`
	Commands []string        `json:"commands"`
	Files    []string        `json:"files"`
}

// BacktraceNode is one node of the test listing backtrace graph.
type BacktraceNode struct {
	File    int  `json:"file"`
	Line    int  `json:"line"`
	Command *int `json:"command"`
	Parent  *int `json:"parent"`
}

// PropertyMap flattens the properties into string form. List values are
// joined with ";" the way CMake itself serializes lists.
func (tc TestCase) PropertyMap() map[string]string {
	out := make(map[string]string, len(tc.Properties))
	for _, p := range tc.Properties {
		out[p.Name] = stringifyPropertyValue(p.Value)
	}
	return out
}

func stringifyPropertyValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			parts = append(parts, stringifyPropertyValue(item))
		}
		return strings.Join(parts, ";")
	case nil:
		return ""
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// Run executes the listing command in buildDir, captures stdout, and parses
// it. A non-zero exit is TestListingFailed; invalid JSON is
// TestListingUnparseable; an empty test set is a valid empty document.
func Run(ctx context.Context, buildDir string, command []string, log ports.Logger) (*Document, error) {
	if len(command) == 0 {
		command = DefaultCommand
	}
	log.Debug(ctx, "running test listing", "command", strings.Join(command, " "), "dir", buildDir)

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = buildDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, rigerrors.NewTestListingFailedError(exitErr.ExitCode(), stderr.String())
		}
		return nil, rigerrors.NewTestListingFailedError(-1, err.Error())
	}

	return Parse(stdout.Bytes())
}

// Parse decodes a test listing document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, rigerrors.NewTestListingUnparseableError(err)
	}
	return &doc, nil
}
