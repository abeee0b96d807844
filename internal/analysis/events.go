package analysis

import (
	"encoding/json"
	"strings"
)

const dataPrefix = "data: "

// Event is one decoded item from an assessment event stream.
type Event interface {
	isEvent()
}

// TextDelta carries an incremental piece of streamed narrative text.
type TextDelta struct {
	Text string
}

// ResultEvent carries the terminal structured result of an assessment run.
type ResultEvent struct {
	Result Result
}

// ErrorEvent carries an error signal embedded in the stream. Once seen, no
// later event in the same stream is meaningful.
type ErrorEvent struct {
	Message string
}

func (TextDelta) isEvent()   {}
func (ResultEvent) isEvent() {}
func (ErrorEvent) isEvent()  {}

// splitLines appends chunk to the carry-over buffer and splits out every
// complete line. The trailing partial line (if any) becomes the new carry-over,
// so a logical line is never decoded until its newline has arrived.
func splitLines(buffer, chunk string) (lines []string, rest string) {
	joined := buffer + chunk
	for {
		idx := strings.IndexByte(joined, '\n')
		if idx < 0 {
			return lines, joined
		}
		lines = append(lines, joined[:idx])
		joined = joined[idx+1:]
	}
}

// DecodeLine turns one raw stream line into an Event. Lines without the data
// prefix, lines whose payload is not valid JSON, and payloads that carry none
// of the recognized keys all yield nil. Heartbeats and formatting noise must
// not abort an otherwise successful run.
func DecodeLine(line string) Event {
	trimmed := strings.TrimRight(line, "\r")
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return nil
	}
	raw := strings.TrimPrefix(trimmed, dataPrefix)

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return decodePayload(payload)
}

func decodePayload(payload map[string]any) Event {
	if payload == nil {
		return nil
	}
	if v, ok := payload["text"]; ok {
		return TextDelta{Text: asString(v)}
	}
	if v, ok := payload["error"]; ok {
		return ErrorEvent{Message: asString(v)}
	}
	// Key presence, not truthiness: a legitimate result may carry confidence 0
	// or an empty assessment.
	if hasAnyKey(payload, "suggested_status", "suggestedStatus", "assessment", "confidence") {
		return ResultEvent{Result: ParseAnalysisData(payload)}
	}
	return nil
}

func hasAnyKey(payload map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := payload[k]; ok {
			return true
		}
	}
	return false
}
