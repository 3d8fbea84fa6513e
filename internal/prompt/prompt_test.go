package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiki-ai/shiki/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildPromptOnly(t *testing.T) {
	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{Prompt: "Summarize the document."})
	assert.Equal(t, "Summarize the document.", got)
}

func TestBuildWithInput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.txt", "hello world")

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:    "Summarize the document.",
		InputFile: input,
	})
	assert.Equal(t, "Summarize the document.\n\nDocument to analyze:\nhello world", got)
}

func TestBuildWithTemplate(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "template.json", `{"summary": "", "topics": []}`)

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:       "Summarize.",
		TemplateFile: tmpl,
	})

	want := "Summarize." +
		"\n\nUse this exact JSON structure as your template:\n" +
		"{\n  \"summary\": \"\",\n  \"topics\": []\n}" +
		"\n\nFill in the values based on the document content, but maintain this exact structure and field names."
	assert.Equal(t, want, got)
}

func TestBuildSectionOrder(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "template.json", `{"summary": ""}`)
	input := writeFile(t, dir, "doc.txt", "body text")

	a := NewAssembler(nil)
	def := &model.AgentDefinition{
		Prompt:       "Analyze.",
		TemplateFile: tmpl,
		InputFile:    input,
	}
	got := a.Build(def)

	// Template block sits between the base prompt and the document.
	want := "Analyze." +
		"\n\nUse this exact JSON structure as your template:\n" +
		"{\n  \"summary\": \"\"\n}" +
		"\n\nFill in the values based on the document content, but maintain this exact structure and field names." +
		"\n\nDocument to analyze:\nbody text"
	assert.Equal(t, want, got)

	// Same definition and files, same bytes.
	assert.Equal(t, got, a.Build(def))
}

func TestBuildMissingTemplateDegrades(t *testing.T) {
	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:       "Summarize.",
		TemplateFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	assert.Equal(t, "Summarize.", got)
}

func TestBuildInvalidTemplateDegrades(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "template.json", "not json at all")

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{Prompt: "Summarize.", TemplateFile: tmpl})
	assert.Equal(t, "Summarize.", got)
}

func TestBuildEmptyTemplateDegrades(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "template.json", "   \n")

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{Prompt: "Summarize.", TemplateFile: tmpl})
	assert.Equal(t, "Summarize.", got)
}

func TestBuildMissingInputDegrades(t *testing.T) {
	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:    "Summarize.",
		InputFile: filepath.Join(t.TempDir(), "missing.txt"),
	})
	assert.Equal(t, "Summarize.", got)
}

func TestBuildMultipleInputsLabeled(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.txt", "first")
	two := writeFile(t, dir, "two.txt", "second")

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:     "Compare.",
		InputFiles: []string{one, two},
	})

	want := "Compare.\n\nDocument to analyze:\n" +
		"--- Content from " + one + " ---\nfirst\n" +
		"\n" +
		"--- Content from " + two + " ---\nsecond\n"
	assert.Equal(t, want, got)
}

func TestBuildMultipleInputsSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.txt", "first")
	missing := filepath.Join(dir, "gone.txt")

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:     "Compare.",
		InputFiles: []string{one, missing},
	})

	want := "Compare.\n\nDocument to analyze:\n--- Content from " + one + " ---\nfirst\n"
	assert.Equal(t, want, got)
}

func TestBuildPluralInputsWinOverSingle(t *testing.T) {
	dir := t.TempDir()
	single := writeFile(t, dir, "single.txt", "single body")
	labeled := writeFile(t, dir, "labeled.txt", "labeled body")

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{
		Prompt:     "Read.",
		InputFile:  single,
		InputFiles: []string{labeled},
	})

	assert.Contains(t, got, "--- Content from "+labeled+" ---")
	assert.NotContains(t, got, "single body")
}

func TestBuildTemplatePreservesKeyOrder(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "template.json", `{"zebra": 1, "apple": 2}`)

	a := NewAssembler(nil)
	got := a.Build(&model.AgentDefinition{Prompt: "Fill.", TemplateFile: tmpl})
	assert.Contains(t, got, "{\n  \"zebra\": 1,\n  \"apple\": 2\n}")
}
