package generator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/voicebridge/internal/exposure"
)

var testEntities = []Entity{
	{EntityID: "light.kitchen", Domain: "light", DeviceID: "dev-1", DisplayName: "Kitchen Spots"},
	{EntityID: "light.hall", Domain: "light", DisplayName: "Hall Light"},
	{EntityID: "switch.fan", Domain: "switch", DisplayName: "Ceiling Fan"},
	{EntityID: "sensor.porch", Domain: "sensor", DisplayName: "Porch Sensor"},
}

// testDocument returns a complete document exposing the two lights.
func testDocument() *exposure.Document {
	doc := exposure.DefaultDocument()
	doc.FilterConfig = exposure.FilterConfig{
		FilterMode: exposure.FilterModeInclude,
		Entities:   []string{"light.kitchen", "light.hall"},
	}
	doc.Aliases = map[string]string{"light.kitchen": "Kitchen Spots"}
	doc.GoogleSettings = exposure.GoogleSettings{
		Enabled:            true,
		ProjectID:          "my-project",
		ServiceAccountPath: "/config/service_account.json",
		ReportState:        true,
	}
	doc.AlexaSettings = exposure.AlexaSettings{Enabled: true}
	return doc
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()

	gen, err := New(Options{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return gen
}

type googleFile struct {
	GoogleAssistant struct {
		ProjectID       string   `yaml:"project_id"`
		ServiceAccount  string   `yaml:"service_account"`
		ReportState     bool     `yaml:"report_state"`
		ExposeByDefault bool     `yaml:"expose_by_default"`
		ExposedDomains  []string `yaml:"exposed_domains"`
		EntityConfig    map[string]struct {
			Name   string `yaml:"name"`
			Expose bool   `yaml:"expose"`
		} `yaml:"entity_config"`
	} `yaml:"google_assistant"`
}

func TestGenerateGoogle(t *testing.T) {
	gen := newTestGenerator(t)

	artifact, err := gen.Generate(testDocument(), testEntities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !artifact.Complete {
		t.Error("Complete = false for fully configured Google settings")
	}
	if artifact.Entities != 2 {
		t.Errorf("Entities = %d, want 2", artifact.Entities)
	}
	if len(artifact.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", artifact.Warnings)
	}
	if !strings.HasPrefix(artifact.Document, "# Managed by voicebridge") {
		t.Error("document missing generated header comment")
	}

	var parsed googleFile
	if err := yaml.Unmarshal([]byte(artifact.Document), &parsed); err != nil {
		t.Fatalf("generated document is not valid YAML: %v", err)
	}
	ga := parsed.GoogleAssistant
	if ga.ProjectID != "my-project" {
		t.Errorf("project_id = %q, want my-project", ga.ProjectID)
	}
	if ga.ServiceAccount != "/config/service_account.json" {
		t.Errorf("service_account = %q", ga.ServiceAccount)
	}
	if !ga.ReportState {
		t.Error("report_state = false, want true")
	}
	if ga.ExposeByDefault {
		t.Error("expose_by_default = true, want false")
	}
	wantDomains := []string{"light"}
	if len(ga.ExposedDomains) != 1 || ga.ExposedDomains[0] != wantDomains[0] {
		t.Errorf("exposed_domains = %v, want %v", ga.ExposedDomains, wantDomains)
	}
	if len(ga.EntityConfig) != 2 {
		t.Fatalf("entity_config has %d entries, want 2", len(ga.EntityConfig))
	}
	kitchen := ga.EntityConfig["light.kitchen"]
	if !kitchen.Expose || kitchen.Name != "Kitchen Spots" {
		t.Errorf("light.kitchen config = %+v, want exposed with alias", kitchen)
	}
	hall := ga.EntityConfig["light.hall"]
	if !hall.Expose || hall.Name != "" {
		t.Errorf("light.hall config = %+v, want exposed without alias", hall)
	}
	if _, ok := ga.EntityConfig["switch.fan"]; ok {
		t.Error("switch.fan present in entity_config despite not being exposed")
	}

	// Empty pin stays out of the document entirely.
	if strings.Contains(artifact.Document, "secure_devices_pin") {
		t.Error("secure_devices_pin emitted despite being empty")
	}
}

func TestGenerateGoogleSeparateMode(t *testing.T) {
	gen := newTestGenerator(t)
	doc := testDocument()
	doc.Mode = exposure.ModeSeparate
	doc.GoogleFilterConfig = exposure.FilterConfig{
		FilterMode: exposure.FilterModeInclude,
		Entities:   []string{"switch.fan"},
	}

	artifact, err := gen.Generate(doc, testEntities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var parsed googleFile
	if err := yaml.Unmarshal([]byte(artifact.Document), &parsed); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if _, ok := parsed.GoogleAssistant.EntityConfig["switch.fan"]; !ok {
		t.Error("separate mode did not use the Google filter config")
	}
	if _, ok := parsed.GoogleAssistant.EntityConfig["light.kitchen"]; ok {
		t.Error("separate mode leaked the shared filter config")
	}
}

func TestGenerateWarnings(t *testing.T) {
	gen := newTestGenerator(t)
	doc := testDocument()
	doc.FilterConfig.Entities = []string{"light.kitchen", "light.hall", "sensor.bare"}
	doc.Aliases = map[string]string{
		"light.kitchen": "Lamp",
		"light.hall":    "Lamp",
	}
	entities := append([]Entity{}, testEntities...)
	entities = append(entities, Entity{EntityID: "sensor.bare", Domain: "sensor", DisplayName: "sensor.bare"})

	artifact, err := gen.Generate(doc, entities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var nameWarning, aliasWarning bool
	for _, w := range artifact.Warnings {
		if strings.Contains(w, "sensor.bare") && strings.Contains(w, "display name") {
			nameWarning = true
		}
		if strings.Contains(w, `"Lamp"`) && strings.Contains(w, "light.kitchen") && strings.Contains(w, "light.hall") {
			aliasWarning = true
		}
	}
	if !nameWarning {
		t.Errorf("Warnings = %v, want missing display name warning", artifact.Warnings)
	}
	if !aliasWarning {
		t.Errorf("Warnings = %v, want duplicate alias warning", artifact.Warnings)
	}
}

func TestGenerateFragmentEmbedding(t *testing.T) {
	gen := newTestGenerator(t)
	doc := testDocument()
	doc.GoogleSettings.AdvancedYAML = "language: en\nreport_state: false"

	artifact, err := gen.Generate(doc, testEntities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.Contains(artifact.Document, "  language: en\n") {
		t.Error("fragment not embedded under google_assistant")
	}
	var collision bool
	for _, w := range artifact.Warnings {
		if strings.Contains(w, `"report_state"`) && strings.Contains(w, "collides") {
			collision = true
		}
	}
	if !collision {
		t.Errorf("Warnings = %v, want report_state collision warning", artifact.Warnings)
	}
	// Generated value appears after the fragment so the parser keeps it.
	fragmentAt := strings.Index(artifact.Document, "  report_state: false")
	generatedAt := strings.Index(artifact.Document, "  report_state: true")
	if fragmentAt == -1 || generatedAt == -1 || generatedAt < fragmentAt {
		t.Error("generated report_state does not follow the fragment's value")
	}
}

func TestGenerateUnparseableFragment(t *testing.T) {
	gen := newTestGenerator(t)
	doc := testDocument()
	doc.AlexaSettings.AdvancedYAML = "locale: [unclosed"

	artifact, err := gen.Generate(doc, testEntities, exposure.AssistantAlexa)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(artifact.Warnings) != 1 || !strings.Contains(artifact.Warnings[0], "could not be parsed") {
		t.Errorf("Warnings = %v, want one parse warning", artifact.Warnings)
	}
	if !strings.Contains(artifact.Document, "locale: [unclosed") {
		t.Error("unparseable fragment was dropped instead of embedded verbatim")
	}
}

type alexaFile struct {
	Alexa struct {
		SmartHome struct {
			Filter struct {
				IncludeEntities []string `yaml:"include_entities"`
			} `yaml:"filter"`
			EntityConfig map[string]struct {
				Name string `yaml:"name"`
			} `yaml:"entity_config"`
		} `yaml:"smart_home"`
	} `yaml:"alexa"`
}

func TestGenerateAlexa(t *testing.T) {
	gen := newTestGenerator(t)

	artifact, err := gen.Generate(testDocument(), testEntities, exposure.AssistantAlexa)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !artifact.Complete {
		t.Error("Complete = false for enabled Alexa settings")
	}

	var parsed alexaFile
	if err := yaml.Unmarshal([]byte(artifact.Document), &parsed); err != nil {
		t.Fatalf("generated document is not valid YAML: %v", err)
	}
	sh := parsed.Alexa.SmartHome
	want := []string{"light.hall", "light.kitchen"}
	if len(sh.Filter.IncludeEntities) != len(want) {
		t.Fatalf("include_entities = %v, want %v", sh.Filter.IncludeEntities, want)
	}
	for i, id := range want {
		if sh.Filter.IncludeEntities[i] != id {
			t.Errorf("include_entities[%d] = %q, want %q", i, sh.Filter.IncludeEntities[i], id)
		}
	}
	if sh.EntityConfig["light.kitchen"].Name != "Kitchen Spots" {
		t.Errorf("entity_config alias = %q, want Kitchen Spots", sh.EntityConfig["light.kitchen"].Name)
	}
}

func TestGenerateAlexaEmptyExposure(t *testing.T) {
	gen := newTestGenerator(t)
	doc := testDocument()
	doc.FilterConfig.Entities = nil

	artifact, err := gen.Generate(doc, testEntities, exposure.AssistantAlexa)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(artifact.Document, "include_entities: []") {
		t.Errorf("empty exposure set should still emit an explicit empty filter list, got:\n%s", artifact.Document)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := newTestGenerator(t)
	doc := testDocument()
	doc.Aliases["light.hall"] = "Hallway"

	first, err := gen.Generate(doc, testEntities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := gen.Generate(doc, testEntities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if first.Document != second.Document {
		t.Error("repeated generation produced different documents")
	}
}

func TestGenerateHomeKitHasNoDocument(t *testing.T) {
	gen := newTestGenerator(t)

	_, err := gen.Generate(testDocument(), testEntities, exposure.AssistantHomeKit)
	if !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Generate(homekit) error = %v, want ErrNoArtifact", err)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	gen, err := New(Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	artifact, err := gen.Write(testDocument(), testEntities, exposure.AssistantGoogle)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	path := filepath.Join(dir, "packages", "generated_google_assistant.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != artifact.Document {
		t.Error("file content differs from generated document")
	}

	// No stray temp files after the rename.
	entries, err := os.ReadDir(filepath.Join(dir, "packages"))
	if err != nil {
		t.Fatalf("reading output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want 1", len(entries))
	}

	// A second write replaces in place.
	if _, err := gen.Write(testDocument(), testEntities, exposure.AssistantGoogle); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
}

func TestWriteIncomplete(t *testing.T) {
	dir := t.TempDir()
	gen, err := New(Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	doc := testDocument()
	doc.GoogleSettings.ProjectID = ""

	artifact, err := gen.Write(doc, testEntities, exposure.AssistantGoogle)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Write() error = %v, want ErrIncomplete", err)
	}
	if artifact.Document == "" {
		t.Error("refused write should still return the rendered artifact")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "packages", "generated_google_assistant.yaml")); !os.IsNotExist(statErr) {
		t.Error("incomplete assistant must not produce a file")
	}
}

func TestArtifactPathConfinement(t *testing.T) {
	gen := newTestGenerator(t)

	escaping := exposure.Assistant("escaping")
	artifactPaths[escaping] = "../outside.yaml"
	defer delete(artifactPaths, escaping)

	if _, err := gen.artifactPath(escaping); !errors.Is(err, ErrPathEscape) {
		t.Errorf("artifactPath() error = %v, want ErrPathEscape", err)
	}
}
