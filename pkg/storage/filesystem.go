package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/baseline"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

const CadenceDir = ".cadence"
const ProjectFile = "project.yaml"
const CalendarsFile = "calendars.yaml"
const ResourcesFile = "resources.yaml"
const RatesFile = "rates.yaml"
const EventsFile = "events.jsonl"
const ConfigFile = "config.yaml"
const DeadLetterFile = "deadletters.jsonl"
const BaselinesFile = "baselines.yaml"

type calendarsDocument struct {
	Calendars []calendar.Calendar `yaml:"calendars"`
}

type resourcesDocument struct {
	Resources []planning.Resource `yaml:"resources"`
}

type baselinesDocument struct {
	Baselines []baseline.Baseline `yaml:"baselines"`
}

// FilesystemRepository stores a project as a set of YAML files under
// .cadence. It implements project.Repository.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// Dir returns the .cadence directory.
func (r *FilesystemRepository) Dir() string {
	return filepath.Join(r.root, CadenceDir)
}

// ResolvePath ensures the path is within the .cadence directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := r.Dir()
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	// Only direct children of .cadence are allowed.
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(r.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", CadenceDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	path, err := r.ResolvePath(ProjectFile)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the project and its companion files. It returns nil without
// error when no project file exists yet.
func (r *FilesystemRepository) Load(ctx context.Context) (*project.Snapshot, error) {
	if !r.IsInitialized() {
		return nil, nil
	}

	retryer := retry.New[*project.Snapshot](r.retryConfig)
	return retryer.Do(ctx, func(ctx context.Context) (*project.Snapshot, error) {
		snap, err := r.LoadProject()
		if err != nil {
			return nil, err
		}
		if snap.Calendars, err = r.LoadCalendars(); err != nil {
			return nil, err
		}
		if snap.Resources, err = r.LoadResources(); err != nil {
			return nil, err
		}
		rates, err := r.LoadRates()
		if err != nil {
			return nil, err
		}
		snap.Rates = *rates
		return snap, nil
	})
}

// Save writes the project and its companion files.
func (r *FilesystemRepository) Save(ctx context.Context, snap *project.Snapshot) error {
	if snap == nil {
		return project.ErrNoProject
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Initialize(); err != nil {
		return err
	}
	if err := r.SaveProject(snap); err != nil {
		return err
	}
	if err := r.SaveCalendars(snap.Calendars); err != nil {
		return err
	}
	if err := r.SaveResources(snap.Resources); err != nil {
		return err
	}
	return r.SaveRates(&snap.Rates)
}

// SaveProject writes project.yaml. Resources, calendars and rates live in
// their own files.
func (r *FilesystemRepository) SaveProject(snap *project.Snapshot) error {
	return r.writeYAML(ProjectFile, snap, "project")
}

// LoadProject reads project.yaml and checks it against the project schema
// before decoding it.
func (r *FilesystemRepository) LoadProject() (*project.Snapshot, error) {
	data, err := r.read(ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}
	if err := validateProjectDocument(doc); err != nil {
		return nil, err
	}

	var snap project.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &snap, nil
}

func (r *FilesystemRepository) SaveCalendars(cals []calendar.Calendar) error {
	return r.writeYAML(CalendarsFile, calendarsDocument{Calendars: cals}, "calendars")
}

// LoadCalendars reads calendars.yaml. A missing file means no calendars.
func (r *FilesystemRepository) LoadCalendars() ([]calendar.Calendar, error) {
	var doc calendarsDocument
	if err := r.readOptionalYAML(CalendarsFile, &doc, "calendars"); err != nil {
		return nil, err
	}
	return doc.Calendars, nil
}

func (r *FilesystemRepository) SaveResources(resources []planning.Resource) error {
	return r.writeYAML(ResourcesFile, resourcesDocument{Resources: resources}, "resources")
}

// LoadResources reads resources.yaml. A missing file means no resources.
func (r *FilesystemRepository) LoadResources() ([]planning.Resource, error) {
	var doc resourcesDocument
	if err := r.readOptionalYAML(ResourcesFile, &doc, "resources"); err != nil {
		return nil, err
	}
	return doc.Resources, nil
}

// SaveRates saves the rate configuration to .cadence/rates.yaml.
func (r *FilesystemRepository) SaveRates(config *billing.RateConfig) error {
	return r.writeYAML(RatesFile, config, "rates")
}

// LoadRates loads the rate configuration from .cadence/rates.yaml.
func (r *FilesystemRepository) LoadRates() (*billing.RateConfig, error) {
	var config billing.RateConfig
	if err := r.readOptionalYAML(RatesFile, &config, "rates"); err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *FilesystemRepository) SaveBaselines(set []baseline.Baseline) error {
	return r.writeYAML(BaselinesFile, baselinesDocument{Baselines: set}, "baselines")
}

// LoadBaselines reads baselines.yaml. A missing file means no baselines.
func (r *FilesystemRepository) LoadBaselines() ([]baseline.Baseline, error) {
	var doc baselinesDocument
	if err := r.readOptionalYAML(BaselinesFile, &doc, "baselines"); err != nil {
		return nil, err
	}
	return doc.Baselines, nil
}

func (r *FilesystemRepository) writeYAML(filename string, v any, what string) error {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", what, err)
	}

	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

func (r *FilesystemRepository) readOptionalYAML(filename string, out any, what string) error {
	data, err := r.read(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s file: %w", what, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", what, err)
	}
	return nil
}

func (r *FilesystemRepository) read(filename string) ([]byte, error) {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	return os.ReadFile(path)
}
