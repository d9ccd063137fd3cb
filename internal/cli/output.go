package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aalvaropc/headline/internal/domain"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatPretty, formatJSON, "":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type statusView struct {
	Protocol domain.Protocol `json:"protocol"`
	Code     int             `json:"code"`
	Message  string          `json:"message"`
}

type headerView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type headView struct {
	Status  statusView   `json:"status"`
	Headers []headerView `json:"headers"`
}

func toStatusView(s domain.StatusLine) statusView {
	return statusView{Protocol: s.Protocol, Code: s.Code, Message: s.Message}
}

func toHeadView(h domain.ResponseHead) headView {
	out := headView{Status: toStatusView(h.Status), Headers: make([]headerView, 0, len(h.Headers))}
	for _, hdr := range h.Headers {
		out.Headers = append(out.Headers, headerView{Name: hdr.Name, Value: hdr.Value})
	}
	return out
}

func printStatus(w io.Writer, s domain.StatusLine, format string) error {
	if format == formatJSON {
		return writeJSON(w, toStatusView(s))
	}
	fmt.Fprintf(w, "protocol: %s\n", s.Protocol)
	fmt.Fprintf(w, "code:     %d\n", s.Code)
	fmt.Fprintf(w, "message:  %s\n", s.Message)
	return nil
}

func printHeader(w io.Writer, h domain.Header, format string) error {
	if format == formatJSON {
		return writeJSON(w, headerView{Name: h.Name, Value: h.Value})
	}
	fmt.Fprintf(w, "name:  %s\n", h.Name)
	fmt.Fprintf(w, "value: %s\n", h.Value)
	return nil
}

func printHead(w io.Writer, h domain.ResponseHead, format string) error {
	if format == formatJSON {
		return writeJSON(w, toHeadView(h))
	}
	fmt.Fprintf(w, "status:  %s\n", h.Status)
	fmt.Fprintf(w, "headers: %d\n", len(h.Headers))
	for _, hdr := range h.Headers {
		fmt.Fprintf(w, "  %s: %s\n", hdr.Name, hdr.Value)
	}
	return nil
}

func printRun(w io.Writer, run domain.RunArtifact, runID string, format string) error {
	switch format {
	case formatJSON:
		payload := map[string]any{
			"run_id": runID,
			"run":    run,
		}
		return writeJSON(w, payload)
	case formatPretty, "":
		printPrettyRun(w, run, runID)
		return nil
	default:
		return checkFormat(format)
	}
}

func printPrettyRun(w io.Writer, run domain.RunArtifact, runID string) {
	total := run.EndedAt.Sub(run.StartedAt)
	if run.StartedAt.IsZero() || run.EndedAt.IsZero() {
		total = 0
	}

	fmt.Fprintf(w, "Suite:      %s\n", run.SuiteName)
	fmt.Fprintf(w, "File:       %s\n", run.SuitePath)
	fmt.Fprintf(w, "Started:    %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Ended:      %s\n", run.EndedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:   %s\n", total)
	if runID != "" {
		fmt.Fprintf(w, "Run ID:     %s\n", runID)
	}
	fmt.Fprintln(w)

	for _, r := range run.Results {
		printPrettyProbe(w, r)
		fmt.Fprintln(w)
	}
}

func printPrettyProbe(w io.Writer, r domain.ProbeResult) {
	status := "OK"
	if r.Failed() {
		status = "FAIL"
	}

	fmt.Fprintf(w, "- [%s] %s (%s %s) %dms\n", status, r.Name, r.Method, r.URL, r.LatencyMS)

	if r.Error != nil {
		fmt.Fprintf(w, "  error: %s (%s)\n", r.Error.Message, r.Error.Kind)
	}
	if r.StatusCode != 0 {
		fmt.Fprintf(w, "  status: %s\n", r.StatusLine())
	}
	if r.Response.Truncated {
		fmt.Fprintf(w, "  body: truncated at %d bytes\n", len(r.Response.Body))
	}

	if len(r.Assertions) > 0 {
		pass, fail := countAssertionPassFail(r.Assertions)
		fmt.Fprintf(w, "  assertions: %d pass / %d fail\n", pass, fail)
		for _, a := range r.Assertions {
			mark := "✓"
			if !a.Passed {
				mark = "✗"
			}
			fmt.Fprintf(w, "    %s %s: %s\n", mark, a.Name, a.Message)
		}
	}

	if len(r.Extracts) > 0 {
		ok, bad := countExtractPassFail(r.Extracts)
		fmt.Fprintf(w, "  extracts: %d ok / %d fail\n", ok, bad)
		for _, e := range r.Extracts {
			mark := "✓"
			if !e.Success {
				mark = "✗"
			}
			fmt.Fprintf(w, "    %s %s: %s\n", mark, e.Name, e.Message)
		}
	}

	if len(r.Extracted) > 0 {
		fmt.Fprintf(w, "  extracted vars:\n")
		keys := make([]string, 0, len(r.Extracted))
		for k := range r.Extracted {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    - %s = %s\n", k, r.Extracted[k])
		}
	}
}

func countAssertionPassFail(in []domain.AssertionResult) (pass int, fail int) {
	for _, a := range in {
		if a.Passed {
			pass++
		} else {
			fail++
		}
	}
	return pass, fail
}

func countExtractPassFail(in []domain.ExtractResult) (ok int, bad int) {
	for _, e := range in {
		if e.Success {
			ok++
		} else {
			bad++
		}
	}
	return ok, bad
}

func sortedHeaderKeys(h map[string][]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
