package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
)

const DefaultModel = "gemini-1.5-flash"

// UploadedFile is the remote half of a staged media artifact: a handle in
// the Gemini file-inference store, pending deletion after use.
type UploadedFile struct {
	Name     string
	URI      string
	MIMEType string
}

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// GenerateText continues a conversation: history seeds the chat (it must
// not end on a user turn) and prompt is the live user message.
func (c *Client) GenerateText(ctx context.Context, cfg domain.AIConfig, history domain.History, prompt string) (string, error) {
	chat, err := c.client.Chats.Create(ctx, c.model, generationConfig(cfg), toContents(history))
	if err != nil {
		return "", fmt.Errorf("creating chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}

	return resp.Text(), nil
}

// GenerateWithImage answers a prompt about inline image bytes.
func (c *Client) GenerateWithImage(ctx context.Context, cfg domain.AIConfig, prompt string, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, generationConfig(cfg))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	return resp.Text(), nil
}

// GenerateWithFile answers a prompt about a file previously uploaded to the
// file-inference store.
func (c *Client) GenerateWithFile(ctx context.Context, cfg domain.AIConfig, prompt string, file *UploadedFile) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromURI(file.URI, file.MIMEType),
		},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, generationConfig(cfg))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	return resp.Text(), nil
}

func (c *Client) UploadFile(ctx context.Context, path, mimeType string) (*UploadedFile, error) {
	file, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("uploading file %q: %w", path, err)
	}

	return &UploadedFile{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
	}, nil
}

func (c *Client) DeleteFile(ctx context.Context, name string) error {
	if _, err := c.client.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("deleting file %q: %w", name, err)
	}
	return nil
}

func generationConfig(cfg domain.AIConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}

	if cfg.SystemInstruction != "" {
		out.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(cfg.SystemInstruction)},
		}
	}

	for category, threshold := range cfg.SafetySettings {
		out.SafetySettings = append(out.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(category),
			Threshold: genai.HarmBlockThreshold(threshold),
		})
	}

	return out
}

func toContents(history domain.History) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, genai.NewPartFromText(p))
		}
		contents = append(contents, &genai.Content{Role: turn.Role, Parts: parts})
	}
	return contents
}
