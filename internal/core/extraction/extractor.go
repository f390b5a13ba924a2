// Package extraction turns normalized document text into a typed entity and
// relationship fragment using an LLM.
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/agenthands/docgraph/internal/config"
	"github.com/agenthands/docgraph/internal/core/common"
	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/llm"
	"github.com/agenthands/docgraph/internal/logger"
)

type promptData struct {
	Content      string
	DocumentPath string
	ProcessedAt  string
	Schema       string
	DocumentType model.DocumentType
}

type Extractor struct {
	LLM       llm.LLMClient
	Tokenizer Tokenizer
	// MaxInputTokens truncates document text before prompting; 0 disables.
	MaxInputTokens int
	Now            func() time.Time

	classify   *template.Template
	strategies map[model.DocumentType]*template.Template
}

// NewExtractor parses the prompt templates, falling back to the built-in
// defaults for any prompt left empty in config.
func NewExtractor(llmClient llm.LLMClient, prompts config.ExtractionPrompts) (*Extractor, error) {
	e := &Extractor{
		LLM:            llmClient,
		MaxInputTokens: prompts.MaxInputTokens,
		Now:            time.Now,
		strategies:     make(map[model.DocumentType]*template.Template, len(model.DocumentTypes)),
	}

	var err error
	if e.classify, err = parsePrompt("classify", prompts.Classify, DefaultClassifyPrompt); err != nil {
		return nil, err
	}
	sources := map[model.DocumentType][2]string{
		model.InvoiceDocument:  {prompts.Invoice, DefaultInvoicePrompt},
		model.ContractDocument: {prompts.Contract, DefaultContractPrompt},
		model.PaystubDocument:  {prompts.Paystub, DefaultPaystubPrompt},
	}
	for dt, src := range sources {
		t, err := parsePrompt(string(dt), src[0], src[1])
		if err != nil {
			return nil, err
		}
		e.strategies[dt] = t
	}
	if e.MaxInputTokens > 0 {
		e.Tokenizer = defaultTokenizer()
	}
	return e, nil
}

func parsePrompt(name, override, def string) (*template.Template, error) {
	src := def
	if strings.TrimSpace(override) != "" {
		src = override
	}
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	return t, nil
}

// Classify asks the LLM which kind of document text is.
func (e *Extractor) Classify(ctx context.Context, text string) (model.DocumentType, error) {
	prompt, err := render(e.classify, promptData{Content: e.truncate(text)})
	if err != nil {
		return "", err
	}
	resp, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return parseClassification(resp)
}

// parseClassification accepts a bare label, optionally quoted or followed by
// punctuation, or a sentence naming exactly one label.
func parseClassification(resp string) (model.DocumentType, error) {
	answer := strings.ToLower(strings.Trim(strings.TrimSpace(resp), "\"'`.!\n "))
	if dt, err := model.ParseDocumentType(answer); err == nil {
		return dt, nil
	}
	var found []model.DocumentType
	for _, dt := range model.DocumentTypes {
		if strings.Contains(answer, string(dt)) {
			found = append(found, dt)
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	return model.ParseDocumentType(answer)
}

// Extract classifies the document and runs the matching extraction strategy.
// Output that cannot be decoded or validated is a *model.SchemaError.
func (e *Extractor) Extract(ctx context.Context, path, text string) (*model.DocumentExtraction, error) {
	dt, err := e.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.ExtractAs(ctx, dt, path, text)
}

func (e *Extractor) ExtractAs(ctx context.Context, dt model.DocumentType, path, text string) (*model.DocumentExtraction, error) {
	tmpl, ok := e.strategies[dt]
	if !ok {
		return nil, &model.SchemaError{Reason: fmt.Sprintf("no extraction strategy for %q", dt)}
	}
	prompt, err := render(tmpl, promptData{
		Content:      e.truncate(text),
		DocumentPath: path,
		ProcessedAt:  e.Now().UTC().Format(time.RFC3339),
		Schema:       Schema(),
		DocumentType: dt,
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", dt, err)
	}

	raw, err := common.CleanJSON(resp)
	if err != nil {
		return nil, &model.SchemaError{Reason: "extraction output is not JSON", Err: err}
	}
	ext, err := model.ParseExtraction([]byte(raw))
	if err != nil {
		return nil, err
	}
	// Vectors come from the embedding stage only.
	for i := range ext.Entities {
		ext.Entities[i].Embedding = nil
	}
	stampDocuments(ext, path, dt)

	logger.Debug("extracted", "path", path, "document_type", dt, "entities", len(ext.Entities), "relationships", len(ext.Relationships))
	return ext, nil
}

// stampDocuments pins Document entities to the source path so that document
// dedup and the processed marker agree on one node.
func stampDocuments(ext *model.DocumentExtraction, path string, dt model.DocumentType) {
	for i := range ext.Entities {
		ent := &ext.Entities[i]
		if ent.Type != model.Document {
			continue
		}
		ent.Properties[model.PropPath] = path
		if ent.StringProp("documentType") == "" {
			ent.Properties["documentType"] = string(dt)
		}
	}
}

func (e *Extractor) truncate(text string) string {
	out, cut := Truncate(e.Tokenizer, text, e.MaxInputTokens)
	if cut {
		logger.Warn("document text truncated", "max_tokens", e.MaxInputTokens)
	}
	return out
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
