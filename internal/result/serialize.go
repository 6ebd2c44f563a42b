package result

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// Format is one of the five surface serialization formats.
type Format string

const (
	FormatHuman   Format = "human"
	FormatMinimal Format = "minimal"
	FormatJUnit   Format = "junit-xml"
	FormatJSON    Format = "json"
	FormatJSONRPC Format = "jsonrpc"
)

// orderedResults returns run's results sorted failed-first, then
// alphabetically by tool name, matching the serialized stable order (spec.md
// §6 ordering guarantees).
func orderedResults(run Run) []Result {
	out := make([]Result, len(run.Results))
	copy(out, run.Results)
	sort.SliceStable(out, func(i, j int) bool {
		iFailed := out[i].Status == StatusFailed || out[i].Status == StatusTimeout
		jFailed := out[j].Status == StatusFailed || out[j].Status == StatusTimeout
		if iFailed != jFailed {
			return iFailed
		}
		return out[i].ToolName < out[j].ToolName
	})
	return out
}

// Serialize renders run in the given format.
func Serialize(run Run, format Format) ([]byte, error) {
	switch format {
	case FormatHuman:
		return serializeHuman(run), nil
	case FormatMinimal:
		return serializeMinimal(run), nil
	case FormatJUnit:
		return serializeJUnit(run)
	case FormatJSON:
		return serializeJSON(run)
	case FormatJSONRPC:
		return serializeJSONRPC(run)
	default:
		return nil, fmt.Errorf("result: unknown serialization format %q", format)
	}
}

// Deserialize parses the json format back into a Run, completing the
// round-trip law `json ∘ deserialize ∘ serialize = identity`.
func Deserialize(data []byte) (Run, error) {
	var run Run
	err := json.Unmarshal(data, &run)
	return run, err
}

func serializeHuman(run Run) []byte {
	var b strings.Builder
	ordered := orderedResults(run)
	if len(ordered) == 0 {
		b.WriteString("Nothing to validate.\n")
		return []byte(b.String())
	}
	for _, r := range ordered {
		icon := statusIcon(r.Status)
		fmt.Fprintf(&b, "%s %-20s %-40s %5d err %5d warn %8s\n",
			icon, r.ToolName, r.Target, r.ErrorCount, r.WarningCount, r.Duration)
	}
	s := run.Summary
	fmt.Fprintf(&b, "\n%d tools: %d success, %d failed, %d skipped, %d timeout, %d unavailable\n",
		s.Total, s.Success, s.Failed, s.Skipped, s.Timeout, s.Unavailable)
	return []byte(b.String())
}

func statusIcon(s Status) string {
	switch s {
	case StatusSuccess:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusTimeout:
		return "⏱"
	case StatusSkipped:
		return "—"
	case StatusUnavailable:
		return "?"
	default:
		return " "
	}
}

func serializeMinimal(run Run) []byte {
	var b strings.Builder
	wrote := false
	for _, r := range orderedResults(run) {
		if r.Status != StatusFailed && r.Status != StatusTimeout {
			continue
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", r.ToolName, r.Target, r.Status)
		wrote = true
	}
	if !wrote {
		return nil
	}
	s := run.Summary
	fmt.Fprintf(&b, "%d failed, %d timeout of %d tools\n", s.Failed, s.Timeout, s.Total)
	return []byte(b.String())
}

type junitTestsuites struct {
	XMLName xml.Name       `xml:"testsuites"`
	Suites  []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Testcases []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name    string        `xml:"name,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
	Skipped *junitSkipped `xml:"skipped,omitempty"`
	Error   *junitError   `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

type junitError struct {
	Message string `xml:"message,attr"`
}

func serializeJUnit(run Run) ([]byte, error) {
	byTool := make(map[string][]Result)
	var toolOrder []string
	for _, r := range orderedResults(run) {
		if _, ok := byTool[r.ToolName]; !ok {
			toolOrder = append(toolOrder, r.ToolName)
		}
		byTool[r.ToolName] = append(byTool[r.ToolName], r)
	}

	suites := junitTestsuites{}
	for _, tool := range toolOrder {
		results := byTool[tool]
		suite := junitTestsuite{Name: tool, Tests: len(results)}
		for _, r := range results {
			tc := junitTestcase{Name: r.Target}
			switch r.Status {
			case StatusFailed:
				tc.Failure = &junitFailure{Message: fmt.Sprintf("%d errors, %d warnings", r.ErrorCount, r.WarningCount)}
				suite.Failures++
			case StatusSkipped, StatusUnavailable:
				tc.Skipped = &junitSkipped{Message: r.SkipReason}
				suite.Skipped++
			case StatusTimeout:
				tc.Error = &junitError{Message: "tool exceeded its deadline"}
				suite.Errors++
			}
			suite.Testcases = append(suite.Testcases, tc)
		}
		suites.Suites = append(suites.Suites, suite)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(suites); err != nil {
		return nil, fmt.Errorf("result: encode junit-xml: %w", err)
	}
	return buf.Bytes(), nil
}

func serializeJSON(run Run) ([]byte, error) {
	return json.MarshalIndent(run, "", "  ")
}

// jsonrpcResponse wraps a Run as the result field of a JSON-RPC 2.0 response,
// using the content-array convention shared with the Agent RPC Dispatcher.
type jsonrpcResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	Result  jsonrpcContent `json:"result"`
}

type jsonrpcContent struct {
	Content []jsonrpcTextBlock `json:"content"`
}

type jsonrpcTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func serializeJSONRPC(run Run) ([]byte, error) {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("result: marshal run for jsonrpc: %w", err)
	}
	resp := jsonrpcResponse{
		JSONRPC: "2.0",
		Result: jsonrpcContent{
			Content: []jsonrpcTextBlock{{Type: "text", Text: string(runJSON)}},
		},
	}
	return json.MarshalIndent(resp, "", "  ")
}
