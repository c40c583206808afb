package services

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Provider profiles
// Provider differences (endpoint shape, auth header, character limits,
// voice-set policy) are a single configuration profile, not separate
// client implementations. The speech client and pipeline consume a
// Profile and stay provider-agnostic.
// ---------------------------------------------------------------------------

// VoicePolicy controls how a profile validates voice identifiers.
type VoicePolicy string

const (
	// VoicePolicyFixedSet: the voice must be one of Profile.Voices.
	VoicePolicyFixedSet VoicePolicy = "fixed_set"
	// VoicePolicyNonEmpty: any non-empty id is accepted (open voice catalog).
	VoicePolicyNonEmpty VoicePolicy = "non_empty"
)

// Profile describes one TTS provider integration.
type Profile struct {
	Name       string
	BaseURL    string
	SpeechPath string // endpoint path for synthesis requests
	AuthHeader string // header name carrying the credential
	AuthScheme string // prefix inside the header, e.g. "Bearer " (may be empty)

	// MaxRequestChars is the provider's hard per-request limit.
	// ChunkSize is the split target, kept under the limit with a safety margin.
	// VoiceInPath providers address the voice in the URL path and take the
	// text as {"text": ...}; otherwise the voice travels in the JSON body
	// alongside {"model", "input", "response_format"}.
	VoiceInPath bool

	MaxRequestChars int
	ChunkSize       int

	// RejectOverlongText makes ValidateText fail overlong input outright
	// instead of delegating to chunking.
	RejectOverlongText bool

	VoicePolicy  VoicePolicy
	Voices       []string // only used with VoicePolicyFixedSet
	DefaultVoice string
	DefaultModel string

	OutputFormat   string
	RequestTimeout time.Duration
}

const (
	openAIBaseURL      = "https://api.openai.com"
	openAISpeechPath   = "/v1/audio/speech"
	openAIDefaultModel = "tts-1-hd"

	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsSpeechPath   = "/v1/text-to-speech"
	elevenLabsDefaultModel = "eleven_flash_v2_5"
	elevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB"
)

// openAIVoices is the fixed OpenAI TTS voice catalog.
var openAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// OpenAIProfile returns the default provider profile. The 4096-char
// request limit is handled by chunking at 3800 chars, leaving a safety
// margin; overlong text is accepted and split, never rejected.
func OpenAIProfile(baseURL string) Profile {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return Profile{
		Name:            "openai",
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		SpeechPath:      openAISpeechPath,
		AuthHeader:      "Authorization",
		AuthScheme:      "Bearer ",
		MaxRequestChars: 4096,
		ChunkSize:       3800,
		VoicePolicy:     VoicePolicyFixedSet,
		Voices:          openAIVoices,
		DefaultVoice:    "alloy",
		DefaultModel:    openAIDefaultModel,
		OutputFormat:    "mp3",
		RequestTimeout:  120 * time.Second,
	}
}

// ElevenLabsProfile returns the ElevenLabs provider profile. The voice
// catalog is open-ended, so voice validation is non-emptiness only, and
// text past the request limit is rejected outright rather than chunked.
func ElevenLabsProfile(baseURL string) Profile {
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	return Profile{
		Name:               "elevenlabs",
		BaseURL:            strings.TrimSuffix(baseURL, "/"),
		SpeechPath:         elevenLabsSpeechPath,
		AuthHeader:         "xi-api-key",
		AuthScheme:         "",
		VoiceInPath:        true,
		MaxRequestChars:    5000,
		ChunkSize:          4500,
		RejectOverlongText: true,
		VoicePolicy:        VoicePolicyNonEmpty,
		DefaultVoice:       elevenLabsDefaultVoice,
		DefaultModel:       elevenLabsDefaultModel,
		OutputFormat:       "mp3_44100_128",
		RequestTimeout:     90 * time.Second,
	}
}

// ProfileByName resolves a configured provider name to its profile.
func ProfileByName(name, baseURL string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai":
		return OpenAIProfile(baseURL), nil
	case "elevenlabs":
		return ElevenLabsProfile(baseURL), nil
	default:
		return Profile{}, fmt.Errorf("unknown TTS provider %q", name)
	}
}

// ValidateText rejects empty input, and overlong input when the profile
// demands it. Runs before any network call.
func (p Profile) ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return newError(ErrValidation, "text cannot be empty")
	}
	if p.RejectOverlongText && len([]rune(text)) > p.MaxRequestChars {
		return newError(ErrValidation, "text exceeds the %d character limit", p.MaxRequestChars)
	}
	return nil
}

// IsValidVoice reports whether the voice id is acceptable under the
// profile's voice policy. Pure predicate, no I/O.
func (p Profile) IsValidVoice(voiceID string) bool {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return false
	}
	if p.VoicePolicy == VoicePolicyNonEmpty {
		return true
	}
	for _, v := range p.Voices {
		if v == voiceID {
			return true
		}
	}
	return false
}
