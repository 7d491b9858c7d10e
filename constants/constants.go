package constants

const (
	VadTypeSileroVad = "silero_vad"
	VadTypeWebRTCVad = "webrtc_vad"
)

const (
	LlmTypeOpenai = "openai"
	LlmTypeOllama = "ollama"
)

// TTS 后端是封闭集合，启动时选定一次
const (
	TtsTypeEdge     = "edge"
	TtsTypeSovits   = "sovits"
	TtsTypeSovitsV3 = "sovits_v3"
	TtsTypeSilent   = "silent"

	TtsTypeDefault = TtsTypeEdge
)

const (
	CacheTypeRedis  = "redis"
	CacheTypeMemory = "memory"
	CacheTypeNone   = "none"
)

// 语言
const (
	LanguageVietnamese = "vi"
)
