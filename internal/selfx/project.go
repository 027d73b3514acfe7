package selfx

import (
	"context"
	"fmt"
)

// Provider names.
const (
	GitHub    = "github"
	GitLab    = "gitlab"
	Bitbucket = "bitbucket"
)

// ValidProvider reports whether name is one of the supported providers.
func ValidProvider(name string) bool {
	switch name {
	case GitHub, GitLab, Bitbucket:
		return true
	}
	return false
}

// ProjectID identifies a project. Repo names are only unique within a provider,
// so both parts are required.
type ProjectID struct {
	RepoFullName string
	Provider     string
}

func (id ProjectID) String() string {
	return id.Provider + ":" + id.RepoFullName
}

// Project is a repository managed by the platform.
type Project struct {
	RepoFullName string
	Provider     string
	Owner        string // username of the project owner at the same provider
}

// ID returns the project's identity.
func (p Project) ID() ProjectID {
	return ProjectID{RepoFullName: p.RepoFullName, Provider: p.Provider}
}

// Contributor is a user of a provider who works on projects.
// Identity is the (Username, Provider) pair.
type Contributor struct {
	Username string
	Provider string
}

func (c Contributor) String() string {
	return c.Provider + ":" + c.Username
}

// Is reports whether the contributor has the given username at the given provider.
func (c Contributor) Is(username, provider string) bool {
	return c.Username == username && c.Provider == provider
}

// Projects provides access to stored projects.
type Projects interface {
	// Register stores a new project.
	Register(ctx context.Context, project Project) (Project, error)

	// GetByID returns the project or nil if it does not exist.
	GetByID(ctx context.Context, id ProjectID) (*Project, error)

	// OwnedBy returns the projects owned by the given user.
	OwnedBy(ctx context.Context, owner Contributor) ([]Project, error)

	// All returns every stored project.
	All(ctx context.Context) ([]Project, error)
}

// Contributors provides access to stored contributors.
type Contributors interface {
	// Register stores a contributor. Registering an existing contributor is a no-op.
	Register(ctx context.Context, username, provider string) (Contributor, error)

	// GetByID returns the contributor or nil if it does not exist.
	GetByID(ctx context.Context, username, provider string) (*Contributor, error)

	// OfProject returns the contributors holding a contract with the project.
	OfProject(ctx context.Context, project ProjectID) ([]Contributor, error)

	// All returns every stored contributor.
	All(ctx context.Context) ([]Contributor, error)
}

// ValidateProject checks that a project can be stored.
func ValidateProject(p Project) error {
	if p.RepoFullName == "" {
		return fmt.Errorf("project repo full name is required")
	}
	if !ValidProvider(p.Provider) {
		return fmt.Errorf("unknown provider %q", p.Provider)
	}
	return nil
}
