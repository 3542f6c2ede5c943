package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/tbourn/go-court-backend/internal/tools"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// Gemini implements Agent and Summarizer on the Google GenAI SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// GeminiConfig configures NewGemini.
type GeminiConfig struct {
	APIKey string
	Model  string
	// RPS caps outbound model calls per second; zero disables limiting.
	RPS float64
}

// NewGemini creates a Gemini-backed capability.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("genai API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g := &Gemini{client: client, model: model}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return g, nil
}

func (g *Gemini) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// Generate runs one round of the deliberation protocol.
func (g *Gemini) Generate(ctx context.Context, req Request) (Reply, error) {
	if err := g.wait(ctx); err != nil {
		return Reply{}, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Tools:             declarations(req.Tools),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents(req), cfg)
	if err != nil {
		return Reply{}, fmt.Errorf("genai generate: %w", err)
	}

	var calls []tools.Call
	for _, fc := range resp.FunctionCalls() {
		if fc == nil {
			continue
		}
		calls = append(calls, tools.Call{Name: tools.Name(fc.Name), Args: stringArgs(fc.Args)})
	}
	return NewReply(resp.Text(), calls)
}

// Summarize condenses transcript plus the current summary.
func (g *Gemini) Summarize(ctx context.Context, transcript []string, current string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	body := fmt.Sprintf("Last %d logs of Conversation:\n%s\n\nCurrent Summary:\n%s\n\nUpdated Summary:",
		len(transcript), strings.Join(transcript, "\n"), current)
	in := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(SummarizePrompt),
			genai.NewPartFromText(body),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, in, nil)
	if err != nil {
		return "", fmt.Errorf("genai summarize: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}

// contents builds the conversation for one round. The second round replays
// the proposed calls as model output followed by their responses.
func contents(req Request) []*genai.Content {
	out := []*genai.Content{genai.NewContentFromText(req.Context, genai.RoleUser)}
	if req.Previous == nil {
		return out
	}

	var proposed []*genai.Part
	if req.Previous.Text != "" {
		proposed = append(proposed, genai.NewPartFromText(req.Previous.Text))
	}
	for _, c := range req.Previous.ToolCalls {
		args := make(map[string]any, len(c.Args))
		for k, v := range c.Args {
			args[k] = v
		}
		proposed = append(proposed, genai.NewPartFromFunctionCall(string(c.Name), args))
	}
	if len(proposed) > 0 {
		out = append(out, genai.NewContentFromParts(proposed, genai.RoleModel))
	}

	var responses []*genai.Part
	for _, o := range req.Outcomes {
		var result any
		if o.Result != nil {
			result = map[string]any{"status": o.Result.Status, "message": o.Result.Message}
		}
		responses = append(responses, genai.NewPartFromFunctionResponse(string(o.Call.Name), map[string]any{"result": result}))
	}
	if len(responses) > 0 {
		out = append(out, genai.NewContentFromParts(responses, genai.RoleUser))
	}
	return out
}

// declarations converts action schemas into a single GenAI tool.
func declarations(schemas []tools.Schema) []*genai.Tool {
	if len(schemas) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		props := make(map[string]*genai.Schema, len(s.Parameters.Properties))
		for name, p := range s.Parameters.Properties {
			props[name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        string(s.Name),
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   s.Parameters.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// stringArgs flattens model-supplied arguments to strings. Numbers are
// rendered without exponent so large ids survive.
func stringArgs(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case string:
			out[k] = x
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}
