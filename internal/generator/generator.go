// Package generator renders voice-assistant configuration artifacts
// from a resolved exposure set.
//
// Generation is deterministic: the same document and entity snapshot
// always produce byte-identical output. Content issues (alias clashes,
// missing display names, passthrough collisions) surface as warnings on
// the artifact, never as errors; errors are reserved for assistants
// without a document form and for filesystem failures.
package generator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/voicebridge/internal/exposure"
)

// Artifact file locations, relative to the output directory. Fixed so
// a stale artifact is always overwritten rather than orphaned.
const (
	googleArtifactPath = "packages/generated_google_assistant.yaml"
	alexaArtifactPath  = "packages/generated_alexa.yaml"
)

// headerComment marks generated files as machine-owned.
const headerComment = "# Managed by voicebridge. Do not edit: this file is rewritten on every artifact write.\n"

var artifactPaths = map[exposure.Assistant]string{
	exposure.AssistantGoogle: googleArtifactPath,
	exposure.AssistantAlexa:  alexaArtifactPath,
}

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Entity is one candidate entity with the display metadata generation
// needs. The directory layer supplies these.
type Entity struct {
	EntityID    string
	Domain      string
	DeviceID    string
	DisplayName string
}

// Artifact is one generated document plus everything a caller needs to
// present or persist it.
type Artifact struct {
	Assistant exposure.Assistant `json:"assistant"`
	Document  string             `json:"document"`
	Entities  int                `json:"entities"`
	Warnings  []string           `json:"warnings"`
	Complete  bool               `json:"complete"`
}

// Generator renders and persists assistant artifacts.
type Generator struct {
	outputDir string
	logger    Logger
}

// Options holds dependencies for creating a Generator.
type Options struct {
	// OutputDir is the allow-listed root all artifacts are written
	// under. Required.
	OutputDir string

	// Logger is optional; defaults to no-op.
	Logger Logger
}

// New creates a Generator.
func New(opts Options) (*Generator, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("generator: output directory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Generator{
		outputDir: opts.OutputDir,
		logger:    logger,
	}, nil
}

// Generate renders the assistant's artifact from the document and the
// entity snapshot. The exposure set is resolved through the assistant's
// effective filter configuration, so linked mode reads the shared
// config and separate mode the assistant's own.
func (g *Generator) Generate(doc *exposure.Document, entities []Entity, assistant exposure.Assistant) (Artifact, error) {
	switch assistant {
	case exposure.AssistantGoogle, exposure.AssistantAlexa:
	default:
		return Artifact{}, fmt.Errorf("%w: %q", ErrNoArtifact, assistant)
	}

	resolver := exposure.NewResolver(doc.EffectiveFilterConfig(assistant))
	exposed := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if resolver.Exposed(exposure.Entity{EntityID: e.EntityID, Domain: e.Domain, DeviceID: e.DeviceID}) {
			exposed = append(exposed, e)
		}
	}
	sort.Slice(exposed, func(i, j int) bool { return exposed[i].EntityID < exposed[j].EntityID })

	aliases := doc.EffectiveAliases(assistant)
	warnings := entityWarnings(exposed, aliases)

	var (
		document      string
		fragmentWarns []string
		err           error
	)
	switch assistant {
	case exposure.AssistantGoogle:
		document, fragmentWarns, err = renderGoogle(doc.GoogleSettings, exposed, aliases)
	case exposure.AssistantAlexa:
		document, fragmentWarns, err = renderAlexa(doc.AlexaSettings, exposed, aliases)
	}
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Assistant: assistant,
		Document:  document,
		Entities:  len(exposed),
		Warnings:  append(warnings, fragmentWarns...),
		Complete:  doc.IsComplete(assistant),
	}, nil
}

// Write renders the assistant's artifact and persists it atomically to
// its fixed location under the output directory. An incomplete
// assistant is refused so a half-configured integration never receives
// a live file.
func (g *Generator) Write(doc *exposure.Document, entities []Entity, assistant exposure.Assistant) (Artifact, error) {
	artifact, err := g.Generate(doc, entities, assistant)
	if err != nil {
		return Artifact{}, err
	}
	if !artifact.Complete {
		return artifact, fmt.Errorf("%w: %s", ErrIncomplete, assistant)
	}

	path, err := g.artifactPath(assistant)
	if err != nil {
		return artifact, err
	}
	if err := writeAtomic(path, []byte(artifact.Document)); err != nil {
		return artifact, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	g.logger.Info("artifact written",
		"assistant", string(assistant),
		"path", path,
		"entities", artifact.Entities,
		"warnings", len(artifact.Warnings),
	)
	return artifact, nil
}

// artifactPath resolves an assistant's absolute artifact path and
// verifies it stays inside the output directory.
func (g *Generator) artifactPath(assistant exposure.Assistant) (string, error) {
	rel, ok := artifactPaths[assistant]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoArtifact, assistant)
	}

	root, err := filepath.Abs(g.outputDir)
	if err != nil {
		return "", fmt.Errorf("generator: resolving output directory: %w", err)
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return path, nil
}

// writeAtomic writes data via a temp file in the target directory and
// renames it into place, so readers never observe a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".voicebridge-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	// CreateTemp restricts to 0600; artifacts are read by the hub.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// entityWarnings reports exposed entities with no resolvable display
// name and distinct entities sharing one alias. Both confuse assistants
// without invalidating the artifact.
func entityWarnings(exposed []Entity, aliases map[string]string) []string {
	var warnings []string
	for _, e := range exposed {
		if e.DisplayName == "" || e.DisplayName == e.EntityID {
			warnings = append(warnings, fmt.Sprintf("entity %s has no display name; assistants will show its raw id", e.EntityID))
		}
	}

	firstOwner := make(map[string]string)
	for _, e := range exposed {
		alias := aliases[e.EntityID]
		if alias == "" {
			continue
		}
		if owner, dup := firstOwner[alias]; dup {
			warnings = append(warnings, fmt.Sprintf("alias %q is shared by %s and %s; assistants require unique names", alias, owner, e.EntityID))
			continue
		}
		firstOwner[alias] = e.EntityID
	}
	return warnings
}

type googleEntityConfig struct {
	Name   string `yaml:"name,omitempty"`
	Expose bool   `yaml:"expose"`
}

type googleConfig struct {
	ProjectID        string                        `yaml:"project_id"`
	ServiceAccount   string                        `yaml:"service_account,omitempty"`
	ReportState      bool                          `yaml:"report_state"`
	SecureDevicesPIN string                        `yaml:"secure_devices_pin,omitempty"`
	ExposeByDefault  bool                          `yaml:"expose_by_default"`
	ExposedDomains   []string                      `yaml:"exposed_domains,omitempty"`
	EntityConfig     map[string]googleEntityConfig `yaml:"entity_config,omitempty"`
}

// renderGoogle emits the google_assistant integration schema. Exposure
// is encoded as expose_by_default false plus an explicit expose entry
// per resolved entity, so the file reproduces the resolved set exactly
// and a new entity never leaks out before the resolver has approved it.
func renderGoogle(settings exposure.GoogleSettings, exposed []Entity, aliases map[string]string) (string, []string, error) {
	cfg := googleConfig{
		ProjectID:        settings.ProjectID,
		ServiceAccount:   settings.ServiceAccountPath,
		ReportState:      settings.ReportState,
		SecureDevicesPIN: settings.SecureDevicesPIN,
		ExposedDomains:   exposedDomains(exposed),
	}
	if len(exposed) > 0 {
		cfg.EntityConfig = make(map[string]googleEntityConfig, len(exposed))
		for _, e := range exposed {
			cfg.EntityConfig[e.EntityID] = googleEntityConfig{
				Name:   aliases[e.EntityID],
				Expose: true,
			}
		}
	}

	generated := []string{"project_id", "report_state", "expose_by_default"}
	if cfg.ServiceAccount != "" {
		generated = append(generated, "service_account")
	}
	if cfg.SecureDevicesPIN != "" {
		generated = append(generated, "secure_devices_pin")
	}
	if len(cfg.ExposedDomains) > 0 {
		generated = append(generated, "exposed_domains")
	}
	if len(cfg.EntityConfig) > 0 {
		generated = append(generated, "entity_config")
	}
	warnings := fragmentWarnings(settings.AdvancedYAML, generated)

	body, err := marshalYAML(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("generator: encoding google document: %w", err)
	}

	var b strings.Builder
	b.WriteString(headerComment)
	b.WriteString("google_assistant:\n")
	// Fragment first: on duplicate keys the hub's parser keeps the last
	// occurrence, so the generated values win.
	writeIndented(&b, settings.AdvancedYAML, 2)
	writeIndented(&b, body, 2)
	return b.String(), warnings, nil
}

type alexaFilter struct {
	IncludeEntities []string `yaml:"include_entities"`
}

type alexaEntityConfig struct {
	Name string `yaml:"name"`
}

type alexaSmartHome struct {
	Filter       alexaFilter                  `yaml:"filter"`
	EntityConfig map[string]alexaEntityConfig `yaml:"entity_config,omitempty"`
}

// renderAlexa emits the alexa smart_home integration schema: an
// include_entities filter naming the resolved set, plus name overrides
// for aliased entities.
func renderAlexa(settings exposure.AlexaSettings, exposed []Entity, aliases map[string]string) (string, []string, error) {
	smartHome := alexaSmartHome{
		Filter: alexaFilter{IncludeEntities: make([]string, 0, len(exposed))},
	}
	for _, e := range exposed {
		smartHome.Filter.IncludeEntities = append(smartHome.Filter.IncludeEntities, e.EntityID)
		if alias := aliases[e.EntityID]; alias != "" {
			if smartHome.EntityConfig == nil {
				smartHome.EntityConfig = make(map[string]alexaEntityConfig)
			}
			smartHome.EntityConfig[e.EntityID] = alexaEntityConfig{Name: alias}
		}
	}

	generated := []string{"filter"}
	if len(smartHome.EntityConfig) > 0 {
		generated = append(generated, "entity_config")
	}
	warnings := fragmentWarnings(settings.AdvancedYAML, generated)

	body, err := marshalYAML(smartHome)
	if err != nil {
		return "", nil, fmt.Errorf("generator: encoding alexa document: %w", err)
	}

	var b strings.Builder
	b.WriteString(headerComment)
	b.WriteString("alexa:\n")
	b.WriteString("  smart_home:\n")
	writeIndented(&b, settings.AdvancedYAML, 4)
	writeIndented(&b, body, 4)
	return b.String(), warnings, nil
}

// exposedDomains returns the sorted distinct domains of the exposure
// set.
func exposedDomains(exposed []Entity) []string {
	seen := make(map[string]struct{}, len(exposed))
	var domains []string
	for _, e := range exposed {
		if _, ok := seen[e.Domain]; ok {
			continue
		}
		seen[e.Domain] = struct{}{}
		domains = append(domains, e.Domain)
	}
	sort.Strings(domains)
	return domains
}

// fragmentWarnings reports top-level passthrough keys that collide with
// generated keys. The fragment is embedded verbatim either way; an
// unparseable fragment only forfeits collision checking.
func fragmentWarnings(fragment string, generated []string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(fragment), &parsed); err != nil {
		return []string{fmt.Sprintf("advanced_yaml could not be parsed for collision checks: %v", err)}
	}

	generatedSet := make(map[string]struct{}, len(generated))
	for _, key := range generated {
		generatedSet[key] = struct{}{}
	}

	keys := make([]string, 0, len(parsed))
	for key := range parsed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		if _, clash := generatedSet[key]; clash {
			warnings = append(warnings, fmt.Sprintf("advanced_yaml key %q collides with a generated key; the generated value wins", key))
		}
	}
	return warnings
}

// marshalYAML renders a value with two-space indentation.
func marshalYAML(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeIndented appends text with each non-blank line prefixed by
// indent spaces, normalising the trailing newline.
func writeIndented(b *strings.Builder, text string, indent int) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	prefix := strings.Repeat(" ", indent)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
}
