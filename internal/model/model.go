package model

import (
	"encoding/json"
	"time"
)

type Intent string

const (
	IntentSOS       Intent = "sos"
	IntentFactCheck Intent = "fact-check"
	IntentQuestion  Intent = "question"
	IntentUnknown   Intent = "unknown"
)

var AllIntent = []Intent{
	IntentSOS,
	IntentFactCheck,
	IntentQuestion,
	IntentUnknown,
}

func (e Intent) IsValid() bool {
	switch e {
	case IntentSOS, IntentFactCheck, IntentQuestion, IntentUnknown:
		return true
	}
	return false
}

func (e Intent) String() string {
	return string(e)
}

type Verdict string

const (
	VerdictTrue       Verdict = "true"
	VerdictFalse      Verdict = "false"
	VerdictMisleading Verdict = "misleading"
	VerdictUnverified Verdict = "unverified"
)

var AllVerdict = []Verdict{
	VerdictTrue,
	VerdictFalse,
	VerdictMisleading,
	VerdictUnverified,
}

func (e Verdict) IsValid() bool {
	switch e {
	case VerdictTrue, VerdictFalse, VerdictMisleading, VerdictUnverified:
		return true
	}
	return false
}

func (e Verdict) String() string {
	return string(e)
}

type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsApp Platform = "whatsapp"
	PlatformDiscord  Platform = "discord"
	PlatformAPI      Platform = "api"
)

func (e Platform) String() string {
	return string(e)
}

// VerificationRecord неизменяемая запись о проверке утверждения (таблица fact_checks)
type VerificationRecord struct {
	ID            string          `json:"factId"`
	ClaimText     string          `json:"claimText"`
	Verdict       Verdict         `json:"verificationStatus"`
	Explanation   string          `json:"explanation"`
	SourceURL     string          `json:"sourceUrl,omitempty"`
	EvidenceLinks []string        `json:"evidenceLinks"`
	Language      string          `json:"language"`
	UpstreamData  json.RawMessage `json:"upstreamData,omitempty"`
	VerifiedAt    time.Time       `json:"verifiedAt"`
}

// VerificationResult внешнее представление записи, хранится в кэше
type VerificationResult struct {
	FactID        string    `json:"factId"`
	ClaimText     string    `json:"claimText"`
	Verdict       Verdict   `json:"verificationStatus"`
	Explanation   string    `json:"explanation"`
	SourceURL     string    `json:"sourceUrl,omitempty"`
	EvidenceLinks []string  `json:"evidenceLinks"`
	VerifiedAt    time.Time `json:"verifiedAt"`
	Found         bool      `json:"found"`
}

// Complete reports whether a decoded cache value carries every required field.
func (r *VerificationResult) Complete() bool {
	return r != nil && r.FactID != "" && r.ClaimText != "" && r.Verdict.IsValid() &&
		r.Explanation != "" && r.EvidenceLinks != nil && !r.VerifiedAt.IsZero()
}

type InboundMessage struct {
	Platform  Platform
	UserID    string
	ChatID    string
	Text      string
	MessageID string
	Profile   UserProfile
	Metadata  map[string]any
}

type InboundCallback struct {
	Platform   Platform
	ChatID     string
	CallbackID string
	Data       string
}

type ReplyOptions struct {
	ParseMode string `json:"parseMode,omitempty"`
}

type Reply struct {
	Text    string       `json:"text"`
	Options ReplyOptions `json:"options"`
}

type UserProfile struct {
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type User struct {
	ID                string      `json:"userId"`
	Platform          Platform    `json:"platformType"`
	PlatformUserID    string      `json:"platformUserId"`
	PreferredLanguage string      `json:"preferredLanguage"`
	AnonymousMode     bool        `json:"anonymousMode"`
	Profile           UserProfile `json:"metadata"`
	CreatedAt         time.Time   `json:"createdAt"`
	LastActive        time.Time   `json:"lastActive"`
}

type Conversation struct {
	ID               string         `json:"conversationId"`
	UserID           string         `json:"userId"`
	Platform         Platform       `json:"platform"`
	MessageContent   string         `json:"messageContent"`
	Intent           Intent         `json:"intentType"`
	LanguageDetected string         `json:"languageDetected"`
	ResponseContent  string         `json:"responseContent"`
	Metadata         map[string]any `json:"metadata"`
	CreatedAt        time.Time      `json:"createdAt"`
}
