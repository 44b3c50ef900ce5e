package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// SchemaChecker validates a document against a schema definition. Each
// returned error is one violation.
type SchemaChecker interface {
	Check(doc []byte) []error
}

// SchemaCheckerFunc adapts a function to SchemaChecker.
type SchemaCheckerFunc func(doc []byte) []error

// Check calls f.
func (f SchemaCheckerFunc) Check(doc []byte) []error { return f(doc) }

// XMLLintChecker delegates to `xmllint --noout --schema`.
type XMLLintChecker struct {
	XSDPath string

	// Binary defaults to "xmllint" on PATH.
	Binary string

	// Timeout bounds one run. Zero means one minute.
	Timeout time.Duration
}

// NewXMLLintChecker creates a checker for the given XSD file.
func NewXMLLintChecker(xsdPath string) *XMLLintChecker {
	return &XMLLintChecker{XSDPath: xsdPath}
}

// Check feeds doc to xmllint on stdin and turns its diagnostics into errors.
func (c *XMLLintChecker) Check(doc []byte) []error {
	binary := c.Binary
	if binary == "" {
		binary = "xmllint"
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, "--noout", "--schema", c.XSDPath, "-")
	cmd.Stdin = bytes.NewReader(doc)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return []error{fmt.Errorf("running %s: %w", binary, err)}
	}

	var errs []error
	for _, line := range strings.Split(stderr.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, "fails to validate") {
			continue
		}
		errs = append(errs, errors.New(line))
	}
	if len(errs) == 0 {
		errs = append(errs, fmt.Errorf("%s exited with status %d", binary, exitErr.ExitCode()))
	}
	return errs
}
