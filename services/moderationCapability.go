package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/FastAndPray/config"
)

// ModerationVerdict is the structured outcome of the generative review stage.
type ModerationVerdict struct {
	Approved            bool     `json:"approved"`
	Reason              string   `json:"reason"`
	Concerns            []string `json:"concerns"`
	Severity            string   `json:"severity"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	SuggestedAction     string   `json:"suggested_action"`
}

// TransientReviewError marks a failure worth retrying (timeout, upstream
// 5xx/429, malformed response). Anything terminal comes back as a verdict.
type TransientReviewError struct {
	Err error
}

func (e *TransientReviewError) Error() string { return "transient review failure: " + e.Err.Error() }
func (e *TransientReviewError) Unwrap() error { return e.Err }

// ModerationCapability judges a prayer request for genuineness, topical
// appropriateness, coherence and safety.
type ModerationCapability interface {
	Review(ctx context.Context, title string, description string) (*ModerationVerdict, error)
}

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

type anthropicCapability struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropicCapability builds the production capability over the Anthropic
// messages API. The per-call timeout comes from the caller's context.
func NewAnthropicCapability(cfg config.Config) ModerationCapability {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Println("WARNING: ANTHROPIC_API_KEY not set. Generative moderation will fail until configured.")
	}
	return &anthropicCapability{
		apiKey: apiKey,
		model:  cfg.ModerationModel,
		client: &http.Client{},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *anthropicCapability) Review(ctx context.Context, title string, description string) (*ModerationVerdict, error) {
	if a.apiKey == "" {
		return nil, &TransientReviewError{Err: fmt.Errorf("moderation capability not configured")}
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       a.model,
		MaxTokens:   500,
		Temperature: 0.1,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildModerationPrompt(title, description)},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &TransientReviewError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientReviewError{Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &TransientReviewError{Err: fmt.Errorf("upstream status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("moderation API status %d: %s", resp.StatusCode, raw)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &TransientReviewError{Err: err}
	}
	if len(parsed.Content) == 0 {
		return nil, &TransientReviewError{Err: fmt.Errorf("empty response content")}
	}

	verdict, err := parseVerdict(parsed.Content[0].Text)
	if err != nil {
		return nil, &TransientReviewError{Err: err}
	}
	return verdict, nil
}

// parseVerdict extracts the JSON verdict, tolerating markdown code fences
// around it.
func parseVerdict(text string) (*ModerationVerdict, error) {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	var verdict ModerationVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &verdict); err != nil {
		return nil, fmt.Errorf("malformed verdict: %w", err)
	}
	return &verdict, nil
}

func buildModerationPrompt(title string, description string) string {
	return fmt.Sprintf(`You are evaluating a prayer request submitted to a Christian community app. Assess the request for appropriateness and genuine prayer needs.

**Request Details:**
- Title: %s
- Description: %s

**Evaluation Criteria:**

1. **Genuine Prayer Need**: Does this represent a sincere request for prayer support? Acceptable topics include health concerns, relationship struggles, spiritual growth, grief, anxiety, financial hardship, guidance, protection, and similar life challenges.

2. **Appropriate Content**: Is the content respectful and suitable for a Christian community? Reject requests containing explicit sexual content, graphic violence, hate speech, harassment of individuals, or content that mocks faith.

3. **Not Spam/Promotional**: Is this a real prayer need rather than advertising, fundraising solicitation, political campaigning, or repetitive spam?

4. **Coherence**: Is the request understandable and written in good faith? Reject incoherent gibberish, test submissions, or obvious jokes.

5. **Safety**: Does this request avoid dangerous content such as self-harm intentions, threats to others, requests for harmful activities, or sharing of private information about others?

**Severity Levels:**
- **low**: Clear, appropriate prayer request with no concerns
- **medium**: Minor concerns but acceptable
- **high**: Significant concerns requiring human review
- **critical**: Immediate safety concerns (self-harm, threats, severe harassment)

**Response Format (JSON only):**
{
  "approved": true/false,
  "reason": "Brief explanation of decision (1-2 sentences)",
  "concerns": ["list", "specific", "issues"],
  "severity": "low|medium|high|critical",
  "requires_human_review": false,
  "suggested_action": "approve|reject|flag_for_review|escalate"
}

The concerns array should be empty if fully approved with no issues. Respond with the JSON object only.`, title, description)
}
