package domain

// HarmCategory and BlockThreshold use the Gemini REST enum spelling so the
// values stored in the remote key-value store stay readable in the admin
// panel and survive SDK upgrades.
type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

type BlockThreshold string

const (
	BlockNone           BlockThreshold = "BLOCK_NONE"
	BlockLowAndAbove    BlockThreshold = "BLOCK_LOW_AND_ABOVE"
	BlockMediumAndAbove BlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh       BlockThreshold = "BLOCK_ONLY_HIGH"
)

// AIConfig is the process-wide generation configuration. It is read fresh
// from the remote store on every handler invocation because the admin panel
// may change it between invocations.
type AIConfig struct {
	SystemInstruction string                          `json:"system_instruction"`
	SafetySettings    map[HarmCategory]BlockThreshold `json:"safety_settings"`
}

const DefaultSystemInstruction = "You are a helpful assistant."

// DefaultAIConfig is used whenever the remote store is unconfigured or
// unreachable. Callers never see an error from the config read path.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		SystemInstruction: DefaultSystemInstruction,
		SafetySettings: map[HarmCategory]BlockThreshold{
			HarmCategoryHarassment:       BlockMediumAndAbove,
			HarmCategoryHateSpeech:       BlockMediumAndAbove,
			HarmCategorySexuallyExplicit: BlockMediumAndAbove,
			HarmCategoryDangerousContent: BlockMediumAndAbove,
		},
	}
}

// Remote key-value store keys.
const (
	SystemInstructionKey = "system_instruction"
	SafetySettingsKey    = "safety_settings"
)
