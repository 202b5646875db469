// Package envelope defines the canonical message schema exchanged over the
// room's topics and the pure functions that build those topic strings.
package envelope

import "encoding/json"

// Type identifies the kind of envelope carried on the bus.
type Type string

const (
	TypeSay       Type = "say"
	TypeTask      Type = "task"
	TypeMicGrant  Type = "mic_grant"
	TypeMicRevoke Type = "mic_revoke"
	TypeResult    Type = "result"
	TypeReject    Type = "reject"
	TypeHeartbeat Type = "heartbeat"
	// TypeSummary is produced by the out-of-scope textual summarizer; no
	// component in this repo emits or consumes one, but the constant is kept
	// so callers decoding an unknown room's traffic can recognize it.
	TypeSummary Type = "summary"
)

// SenderKind identifies who originated an envelope.
type SenderKind string

const (
	SenderUser   SenderKind = "user"
	SenderAgent  SenderKind = "agent"
	SenderSystem SenderKind = "system"
)

// Sender identifies the envelope's originator.
type Sender struct {
	Kind SenderKind `json:"kind"`
	ID   string     `json:"id"`
}

// Envelope is the universal wrapper carried on every topic.
type Envelope struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	RoomID  string          `json:"room_id"`
	From    Sender          `json:"from"`
	TS      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// DecodePayload unmarshals the envelope's raw payload into dst.
func (e Envelope) DecodePayload(dst interface{}) error {
	return json.Unmarshal(e.Payload, dst)
}

// WithPayload returns a copy of e with Payload set to the JSON encoding of p.
func (e Envelope) WithPayload(p interface{}) (Envelope, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, err
	}
	e.Payload = raw
	return e, nil
}

// SayPayload carries free-form chat text, typically from a human user.
type SayPayload struct {
	Text string `json:"text"`
}

// TaskPayload delegates a unit of work to a named agent.
type TaskPayload struct {
	TaskID   string  `json:"task_id"`
	Goal     string  `json:"goal"`
	Format   *string `json:"format,omitempty"`
	Deadline *int64  `json:"deadline,omitempty"`
}

// ResultMessageType discriminates the content variant carried in a
// ResultPayload.
type ResultMessageType string

const (
	ResultAck                 ResultMessageType = "ack"
	ResultClarifyingQuestion  ResultMessageType = "clarifying_question"
	ResultProgress            ResultMessageType = "progress"
	ResultFinding             ResultMessageType = "finding"
	ResultRisk                ResultMessageType = "risk"
	ResultResult              ResultMessageType = "result"
	ResultArtifactLink        ResultMessageType = "artifact_link"
)

// MicGrantPayload authorizes an agent to speak for a bounded number of
// messages and a bounded time, restricted to a set of result message types.
type MicGrantPayload struct {
	TaskID              string              `json:"task_id"`
	AgentID             string              `json:"agent_id"`
	MaxMessages         int                 `json:"max_messages"`
	AllowedMessageTypes []ResultMessageType `json:"allowed_message_types"`
	ExpiresAt           int64               `json:"expires_at"`
}

// ResultPayload carries a worker's (or facilitator's) reply, tagged by
// MessageType; Content holds the matching variant and is decoded on demand
// via the As* accessors below.
type ResultPayload struct {
	TaskID      string            `json:"task_id"`
	MessageType ResultMessageType `json:"message_type"`
	Content     json.RawMessage   `json:"content"`
}

// AckOutcome is the content of an "ack" result.
type AckOutcome struct {
	Text string `json:"text,omitempty"`
}

// ClarifyingQuestionOutcome is the content of a "clarifying_question" result.
type ClarifyingQuestionOutcome struct {
	Text string `json:"text"`
}

// ProgressOutcome is the content of a "progress" result.
type ProgressOutcome struct {
	Text             string `json:"text"`
	PercentComplete  *int   `json:"percent_complete,omitempty"`
}

// FindingOutcome is the content of a "finding" result.
type FindingOutcome struct {
	Text string `json:"text"`
}

// RiskOutcome is the content of a "risk" result.
type RiskOutcome struct {
	Text     string `json:"text"`
	Severity string `json:"severity,omitempty"`
}

// ResultOutcome is the content of a terminal "result" result.
type ResultOutcome struct {
	Text string `json:"text"`
}

// ArtifactLinkOutcome is the content of an "artifact_link" result.
type ArtifactLinkOutcome struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

func newResult(taskID string, mt ResultMessageType, content interface{}) (ResultPayload, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return ResultPayload{}, err
	}
	return ResultPayload{TaskID: taskID, MessageType: mt, Content: raw}, nil
}

// NewAckResult builds a ResultPayload carrying an ack variant.
func NewAckResult(taskID, text string) (ResultPayload, error) {
	return newResult(taskID, ResultAck, AckOutcome{Text: text})
}

// NewClarifyingQuestionResult builds a ResultPayload carrying a
// clarifying_question variant.
func NewClarifyingQuestionResult(taskID, text string) (ResultPayload, error) {
	return newResult(taskID, ResultClarifyingQuestion, ClarifyingQuestionOutcome{Text: text})
}

// NewProgressResult builds a ResultPayload carrying a progress variant.
func NewProgressResult(taskID, text string, percent *int) (ResultPayload, error) {
	return newResult(taskID, ResultProgress, ProgressOutcome{Text: text, PercentComplete: percent})
}

// NewFindingResult builds a ResultPayload carrying a finding variant.
func NewFindingResult(taskID, text string) (ResultPayload, error) {
	return newResult(taskID, ResultFinding, FindingOutcome{Text: text})
}

// NewRiskResult builds a ResultPayload carrying a risk variant.
func NewRiskResult(taskID, text, severity string) (ResultPayload, error) {
	return newResult(taskID, ResultRisk, RiskOutcome{Text: text, Severity: severity})
}

// NewFinalResult builds a ResultPayload carrying a terminal result variant.
func NewFinalResult(taskID, text string) (ResultPayload, error) {
	return newResult(taskID, ResultResult, ResultOutcome{Text: text})
}

// NewArtifactLinkResult builds a ResultPayload carrying an artifact_link
// variant.
func NewArtifactLinkResult(taskID, url, description string) (ResultPayload, error) {
	return newResult(taskID, ResultArtifactLink, ArtifactLinkOutcome{URL: url, Description: description})
}

// AsResultOutcome decodes p.Content as a ResultOutcome. Callers should only
// call the As* accessor matching p.MessageType.
func (p ResultPayload) AsResultOutcome() (ResultOutcome, error) {
	var out ResultOutcome
	err := json.Unmarshal(p.Content, &out)
	return out, err
}

// AsFindingOutcome decodes p.Content as a FindingOutcome.
func (p ResultPayload) AsFindingOutcome() (FindingOutcome, error) {
	var out FindingOutcome
	err := json.Unmarshal(p.Content, &out)
	return out, err
}

// HeartbeatPayload reports that an agent is alive, optionally describing
// what it does.
type HeartbeatPayload struct {
	AgentID     string  `json:"agent_id"`
	Description *string `json:"description,omitempty"`
}

// RejectedReason enumerates the moderator's deterministic rejection causes.
type RejectedReason string

const (
	ReasonNoMicGrant            RejectedReason = "no_mic_grant"
	ReasonMicGrantExpired       RejectedReason = "mic_grant_expired"
	ReasonMessageTypeNotAllowed RejectedReason = "message_type_not_allowed"
	ReasonMessageLimitExceeded  RejectedReason = "message_limit_exceeded"
)

// RejectPayload explains why a candidate message was not republished to the
// public topic.
type RejectPayload struct {
	MessageID string         `json:"message_id"`
	TaskID    string         `json:"task_id"`
	Reason    RejectedReason `json:"reason"`
}

// RevokePayload deletes the moderator-local grant for (agent_id, task_id);
// any candidate validated afterward fails with ReasonNoMicGrant.
type RevokePayload struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
}
