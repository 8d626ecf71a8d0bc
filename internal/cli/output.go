package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(os.Stderr, string(data))
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	if _, ok := data.(Event); !ok {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case MatchList:
		o.printMatchList(v)
	case HealthResult:
		o.printHealthResult(v)
	case Event:
		o.printEvent(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Match response type (matches API)
type Match struct {
	Match   string   `json:"match"`
	Players []string `json:"players"`
}

// MatchList is the match directory
type MatchList []Match

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// Event is a frame received over the realtime connection
type Event struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	ID      *int64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

func (o *Output) printMatchList(matches MatchList) {
	if len(matches) == 0 {
		_, _ = fmt.Fprintln(o.w, "No open matches")
		return
	}
	_, _ = fmt.Fprintf(o.w, "Matches (%d):\n", len(matches))
	for _, m := range matches {
		names := make([]string, 0, len(m.Players))
		for _, p := range m.Players {
			if p == "" {
				p = "(unnamed)"
			}
			names = append(names, p)
		}
		_, _ = fmt.Fprintf(o.w, "  - %s [%d/2] %s\n", m.Match, len(m.Players), strings.Join(names, ", "))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}

func (o *Output) printEvent(e Event) {
	timestamp := e.Time.Format("2006-01-02 15:04:05")
	if e.Error != nil {
		_, _ = fmt.Fprintf(o.w, "[%s] %s: %s\n", timestamp, e.Type, e.Error.String())
		return
	}

	// Truncate data if it's too long for display
	display := string(e.Payload)
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	display = strings.ReplaceAll(display, "\n", " ")
	if display == "" {
		_, _ = fmt.Fprintf(o.w, "[%s] %s\n", timestamp, e.Type)
		return
	}
	_, _ = fmt.Fprintf(o.w, "[%s] %s: %s\n", timestamp, e.Type, display)
}
