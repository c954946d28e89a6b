package realtime

import (
	"encoding/base64"
	"encoding/json"
)

// Kind classifies server events the supervisor cares about.
type Kind int

const (
	KindUnknown Kind = iota
	KindSessionCreated
	KindSessionUpdated
	KindFunctionCall
	KindUserTranscript
	KindAssistantTranscript
	KindAudioDelta
	KindSpeechStarted
	KindResponseDone
	KindError
	// KindClosed is synthesized when the connection drops without Close being called.
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindSessionCreated:
		return "session_created"
	case KindSessionUpdated:
		return "session_updated"
	case KindFunctionCall:
		return "function_call"
	case KindUserTranscript:
		return "user_transcript"
	case KindAssistantTranscript:
		return "assistant_transcript"
	case KindAudioDelta:
		return "audio_delta"
	case KindSpeechStarted:
		return "speech_started"
	case KindResponseDone:
		return "response_done"
	case KindError:
		return "error"
	case KindClosed:
		return "closed"
	}
	return "unknown"
}

// Event is a decoded server event. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	Type string

	CallID    string
	Name      string
	Arguments string

	Transcript string
	Audio      []byte

	Code    string
	Message string
	Err     error
}

type serverEvent struct {
	Type       string `json:"type"`
	CallID     string `json:"call_id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	Transcript string `json:"transcript"`
	Delta      string `json:"delta"`
	Error      *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseEvent decodes one server message. Unknown or malformed messages return ok=false.
func ParseEvent(data []byte) (Event, bool) {
	var se serverEvent
	if err := json.Unmarshal(data, &se); err != nil || se.Type == "" {
		return Event{}, false
	}
	ev := Event{Type: se.Type}
	switch se.Type {
	case "session.created":
		ev.Kind = KindSessionCreated
	case "session.updated":
		ev.Kind = KindSessionUpdated
	case "response.function_call_arguments.done":
		ev.Kind = KindFunctionCall
		ev.CallID, ev.Name, ev.Arguments = se.CallID, se.Name, se.Arguments
	case "conversation.item.input_audio_transcription.completed":
		ev.Kind = KindUserTranscript
		ev.Transcript = se.Transcript
	case "response.output_audio_transcript.done", "response.audio_transcript.done":
		ev.Kind = KindAssistantTranscript
		ev.Transcript = se.Transcript
	case "response.output_audio.delta", "response.audio.delta":
		b, err := base64.StdEncoding.DecodeString(se.Delta)
		if err != nil {
			return Event{}, false
		}
		ev.Kind = KindAudioDelta
		ev.Audio = b
	case "input_audio_buffer.speech_started":
		ev.Kind = KindSpeechStarted
	case "response.done":
		ev.Kind = KindResponseDone
	case "error":
		ev.Kind = KindError
		if se.Error != nil {
			ev.Code = se.Error.Code
			if ev.Code == "" {
				ev.Code = se.Error.Type
			}
			ev.Message = se.Error.Message
		}
	default:
		return Event{}, false
	}
	return ev, true
}

// AudioFormat is a realtime audio encoding.
type AudioFormat struct {
	Type string `json:"type"`
	Rate int    `json:"rate,omitempty"`
}

var (
	// FormatPCM24k is 24 kHz mono little-endian PCM16.
	FormatPCM24k = AudioFormat{Type: "audio/pcm", Rate: 24000}
	// FormatPCMU is 8 kHz G.711 μ-law, as carried by telephone media streams.
	FormatPCMU = AudioFormat{Type: "audio/pcmu"}
)

// Tool is a function tool advertised in session.update.
type Tool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// SessionConfig configures the remote session after connect.
type SessionConfig struct {
	Instructions       string
	Voice              string
	Tools              []Tool
	Input              AudioFormat
	Output             AudioFormat
	TranscriptionModel string
}

func (c SessionConfig) message() map[string]any {
	input := map[string]any{
		"format":         c.Input,
		"turn_detection": map[string]any{"type": "server_vad"},
	}
	if c.TranscriptionModel != "" {
		input["transcription"] = map[string]any{"model": c.TranscriptionModel}
	}
	output := map[string]any{"format": c.Output}
	if c.Voice != "" {
		output["voice"] = c.Voice
	}
	tools := c.Tools
	if tools == nil {
		tools = []Tool{}
	}
	return map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"type":         "realtime",
			"instructions": c.Instructions,
			"tools":        tools,
			"tool_choice":  "auto",
			"audio":        map[string]any{"input": input, "output": output},
		},
	}
}
