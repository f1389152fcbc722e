package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// replyByteLimit keeps AI answers comfortably under the WhatsApp text
// message ceiling.
const replyByteLimit = 3500

var aiHTTPClient = &http.Client{Timeout: 60 * time.Second}

// AICommands returns gpt, gemini and bing. Commands with no configured API
// key reply with a hint instead of failing.
func AICommands() []Command {
	return []Command{
		NewCommand("gpt", "Ask OpenAI", "gpt <question>",
			func(ctx context.Context, inv *Invocation) error {
				if inv.Config.OpenAIKey == "" {
					return inv.Reply(ctx, "OpenAI is not configured. Set OPENAI_API_KEY.")
				}
				prompt := strings.Join(inv.Args, " ")
				if prompt == "" {
					return inv.Reply(ctx, "Usage: "+inv.Config.Prefix+"gpt <question>")
				}
				answer, err := askOpenAI(ctx, inv.Config, prompt)
				if err != nil {
					return err
				}
				return inv.Reply(ctx, truncateGraphemes(answer, replyByteLimit))
			}),

		NewCommand("gemini", "Ask Google Gemini", "gemini <question>",
			func(ctx context.Context, inv *Invocation) error {
				if inv.Config.GeminiKey == "" {
					return inv.Reply(ctx, "Gemini is not configured. Set GEMINI_API_KEY.")
				}
				prompt := strings.Join(inv.Args, " ")
				if prompt == "" {
					return inv.Reply(ctx, "Usage: "+inv.Config.Prefix+"gemini <question>")
				}
				answer, err := askGemini(ctx, inv.Config, prompt)
				if err != nil {
					return err
				}
				return inv.Reply(ctx, truncateGraphemes(answer, replyByteLimit))
			}),

		NewCommand("bing", "Search the web via Bing", "bing <query>",
			func(ctx context.Context, inv *Invocation) error {
				if inv.Config.BingKey == "" {
					return inv.Reply(ctx, "Bing search is not configured. Set BING_API_KEY.")
				}
				query := strings.Join(inv.Args, " ")
				if query == "" {
					return inv.Reply(ctx, "Usage: "+inv.Config.Prefix+"bing <query>")
				}
				answer, err := askBing(ctx, inv.Config, query)
				if err != nil {
					return err
				}
				return inv.Reply(ctx, truncateGraphemes(answer, replyByteLimit))
			}),
	}
}

func askOpenAI(ctx context.Context, cfg *Config, prompt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": cfg.OpenAIModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.OpenAIKey)

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := doJSON(req, &out); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if out.Error.Message != "" {
		return "", fmt.Errorf("openai: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

func askGemini(ctx context.Context, cfg *Config, prompt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		cfg.GeminiModel, url.QueryEscape(cfg.GeminiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := doJSON(req, &out); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if out.Error.Message != "" {
		return "", fmt.Errorf("gemini: %s", out.Error.Message)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func askBing(ctx context.Context, cfg *Config, query string) (string, error) {
	endpoint := "https://api.bing.microsoft.com/v7.0/search?count=5&q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", cfg.BingKey)

	var out struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := doJSON(req, &out); err != nil {
		return "", fmt.Errorf("bing: %w", err)
	}
	if len(out.WebPages.Value) == 0 {
		return "", fmt.Errorf("bing: no results for %q", query)
	}

	var sb strings.Builder
	sb.WriteString("🔎 Results for " + query + ":\n")
	for _, page := range out.WebPages.Value {
		sb.WriteString("\n*" + page.Name + "*\n")
		sb.WriteString(page.Snippet + "\n")
		sb.WriteString(page.URL + "\n")
	}
	return sb.String(), nil
}

func doJSON(req *http.Request, out interface{}) error {
	resp, err := aiHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("http %d", resp.StatusCode)
		}
		return err
	}
	return nil
}

// truncateGraphemes cuts text to at most limit bytes without splitting a
// grapheme cluster, so multi-rune emoji survive the cut intact.
func truncateGraphemes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	gr := uniseg.NewGraphemes(text)
	end := 0
	for gr.Next() {
		_, to := gr.Positions()
		if to > limit-len("…") {
			break
		}
		end = to
	}
	return text[:end] + "…"
}
