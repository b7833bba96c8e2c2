package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrProjectNotFound is returned for unknown project ids.
var ErrProjectNotFound = errors.New("project not found")

// ProjectRun is one analysis stored under a project.
type ProjectRun struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Summary     string    `json:"summary"`
	TotalTokens int       `json:"totalTokens"`
	Tokenizer   string    `json:"tokenizer"`
}

// Project groups runs under a user-chosen name.
type Project struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
	Runs      []ProjectRun `json:"runs"`
}

// Projects stores the project list under KeyProjects, newest first.
// The active project is process state: it starts as the first stored project.
type Projects struct {
	mu       sync.Mutex
	kv       KV
	runLimit int
	active   string
	loaded   bool
	now      func() time.Time
}

// NewProjects creates a Projects store keeping at most runLimit runs per project.
func NewProjects(kv KV, runLimit int) *Projects {
	if runLimit <= 0 {
		runLimit = 100
	}
	return &Projects{kv: kv, runLimit: runLimit, now: time.Now}
}

// List returns all projects, newest first.
func (p *Projects) List(ctx context.Context) ([]Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(ctx)
}

// Get returns a single project.
func (p *Projects) Get(ctx context.Context, id string) (Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	projects, err := p.load(ctx)
	if err != nil {
		return Project{}, err
	}
	for _, pr := range projects {
		if pr.ID == id {
			return pr, nil
		}
	}
	return Project{}, ErrProjectNotFound
}

// Create prepends a new project and makes it active.
func (p *Projects) Create(ctx context.Context, name string) (Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.create(ctx, name)
}

func (p *Projects) create(ctx context.Context, name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("projects.Create: name is required")
	}
	projects, err := p.load(ctx)
	if err != nil {
		return Project{}, err
	}
	pr := Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: p.now().UTC(),
		Runs:      []ProjectRun{},
	}
	if err := p.save(ctx, append([]Project{pr}, projects...)); err != nil {
		return Project{}, err
	}
	p.active = pr.ID
	return pr, nil
}

// SetActive selects the project that new runs are stored under.
func (p *Projects) SetActive(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	projects, err := p.load(ctx)
	if err != nil {
		return err
	}
	for _, pr := range projects {
		if pr.ID == id {
			p.active = id
			return nil
		}
	}
	return ErrProjectNotFound
}

// ActiveID returns the active project id, or "" when there is none.
func (p *Projects) ActiveID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.load(ctx); err != nil {
		return "", err
	}
	return p.active, nil
}

// EnsureActive returns the active project id, creating "Project N+1" when none is active.
func (p *Projects) EnsureActive(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	projects, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	if p.active != "" {
		return p.active, nil
	}
	pr, err := p.create(ctx, fmt.Sprintf("Project %d", len(projects)+1))
	if err != nil {
		return "", err
	}
	return pr.ID, nil
}

// AddRun prepends run to the project's runs, keeping at most the run cap.
func (p *Projects) AddRun(ctx context.Context, projectID string, run ProjectRun) (ProjectRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	projects, err := p.load(ctx)
	if err != nil {
		return ProjectRun{}, err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = p.now().UTC()
	}
	if run.TotalTokens < 0 {
		run.TotalTokens = 0
	}

	found := false
	for i := range projects {
		if projects[i].ID != projectID {
			continue
		}
		runs := append([]ProjectRun{run}, projects[i].Runs...)
		if len(runs) > p.runLimit {
			runs = runs[:p.runLimit]
		}
		projects[i].Runs = runs
		found = true
		break
	}
	if !found {
		return ProjectRun{}, ErrProjectNotFound
	}
	if err := p.save(ctx, projects); err != nil {
		return ProjectRun{}, err
	}
	return run, nil
}

func (p *Projects) load(ctx context.Context) ([]Project, error) {
	raw, ok, err := p.kv.Get(ctx, KeyProjects)
	if err != nil {
		return nil, fmt.Errorf("projects.load: %w", err)
	}
	projects := []Project{}
	if ok {
		if err := json.Unmarshal(raw, &projects); err != nil {
			log.Printf("projects.load: discarding unreadable projects: %v", err)
			projects = []Project{}
		}
	}
	if !p.loaded {
		p.loaded = true
		if p.active == "" && len(projects) > 0 {
			p.active = projects[0].ID
		}
	}
	return projects, nil
}

func (p *Projects) save(ctx context.Context, projects []Project) error {
	raw, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("projects.save: marshal: %w", err)
	}
	if err := p.kv.Set(ctx, KeyProjects, raw); err != nil {
		return fmt.Errorf("projects.save: %w", err)
	}
	return nil
}
