// Package event defines the outbound messages a session can emit. The
// gateway serializes them onto the connection in arrival order through a
// single writer per session.
package event

import "encoding/json"

// Event is one outbound item for a session's write queue.
type Event interface {
	isEvent()
}

// UserTranscript reports a finalized user utterance in dialogue mode.
type UserTranscript struct {
	Text string
}

// ServerTranscript carries a transcript in transcription mode, or the
// generated reply text in dialogue mode.
type ServerTranscript struct {
	Text      string
	SessionID string
}

// AudioStatus brackets a run of synthesized audio frames. Status is "start"
// or "end".
type AudioStatus struct {
	Status string
}

// Audio is one binary frame of synthesized PCM.
type Audio struct {
	PCM []byte
}

func (UserTranscript) isEvent()   {}
func (ServerTranscript) isEvent() {}
func (AudioStatus) isEvent()      {}
func (Audio) isEvent()            {}

// Encode renders ev for the wire. binary reports whether payload must be
// sent as a binary frame rather than text JSON.
func Encode(ev Event) (payload []byte, binary bool, err error) {
	switch e := ev.(type) {
	case UserTranscript:
		payload, err = json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "user_transcript", Text: e.Text})
		return payload, false, err
	case ServerTranscript:
		payload, err = json.Marshal(struct {
			Type      string `json:"type"`
			Text      string `json:"text"`
			SessionID string `json:"session_id"`
		}{Type: "server_transcript", Text: e.Text, SessionID: e.SessionID})
		return payload, false, err
	case AudioStatus:
		payload, err = json.Marshal(struct {
			Type   string `json:"type"`
			Status string `json:"audio_bytes_status"`
		}{Type: "config", Status: e.Status})
		return payload, false, err
	case Audio:
		return e.PCM, true, nil
	default:
		return nil, false, nil
	}
}
