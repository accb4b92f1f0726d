package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/questionnaire"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// String implements pflag.Value.
func (o *OutputFormat) String() string { return string(*o) }

// Set implements pflag.Value.
func (o *OutputFormat) Set(s string) error {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		*o = OutputFormat(s)
		return nil
	}
	return fmt.Errorf("must be text or json, got %q", s)
}

// Type implements pflag.Value.
func (o *OutputFormat) Type() string { return "format" }

// readInput reads path, or stdin when path is empty or "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if isStdin(path) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func isStdin(path string) bool {
	return path == "" || path == "-"
}

func inputName(path string) string {
	if isStdin(path) {
		return "stdin"
	}
	return path
}

// writeJSON writes data indented, followed by a newline.
func writeJSON(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func writeValue(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return writeJSON(w, data)
}

func writeResult(w io.Writer, format OutputFormat, name string, res *issue.Result) error {
	if format == OutputJSON {
		data, err := questionnaire.MarshalOutcome(res.ToOperationOutcome())
		if err != nil {
			return err
		}
		return writeJSON(w, data)
	}
	printTextResult(w, name, res)
	return nil
}

func printTextResult(w io.Writer, name string, result *issue.Result) {
	status := "VALID"
	if result.HasErrors() {
		status = "INVALID"
	}

	fmt.Fprintf(w, "== %s ==\n", name)
	fmt.Fprintf(w, "Status: %s\n", status)
	fmt.Fprintf(w, "Errors: %d, Warnings: %d\n", result.ErrorCount(), result.WarningCount())

	if len(result.Issues) > 0 {
		fmt.Fprintln(w, "\nIssues:")
		for _, iss := range result.Issues {
			location := ""
			if len(iss.Expression) > 0 {
				location = fmt.Sprintf(" @ %s", strings.Join(iss.Expression, ", "))
			}
			fmt.Fprintf(w, "  %s [%s] %s%s\n", severityIcon(iss.Severity), iss.Code, iss.Diagnostics, location)
		}
	}

	fmt.Fprintln(w)
}

func severityIcon(severity issue.Severity) string {
	switch severity {
	case issue.SeverityError, issue.SeverityFatal:
		return "ERROR"
	case issue.SeverityWarning:
		return "WARN "
	case issue.SeverityInformation:
		return "INFO "
	default:
		return "     "
	}
}
