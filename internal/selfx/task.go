package selfx

import (
	"context"
	"time"
)

// Issue is a provider issue that can become a task.
type Issue struct {
	ID           string
	RepoFullName string
	Provider     string
	Role         Role
	Estimation   int // minutes
}

// Project returns the identity of the issue's project.
func (i Issue) Project() ProjectID {
	return ProjectID{RepoFullName: i.RepoFullName, Provider: i.Provider}
}

// Task is an issue taken over by the platform. Assignee is nil while the task
// waits for a contributor.
type Task struct {
	IssueID    string
	Project    ProjectID
	Role       Role
	Assignee   *Contributor
	AssignedAt time.Time
	Deadline   time.Time
	Estimation int // minutes
}

// TaskKey is the identity of a task: an issue is a task at most once per project.
type TaskKey struct {
	IssueID string
	Project ProjectID
}

func (t Task) Key() TaskKey {
	return TaskKey{IssueID: t.IssueID, Project: t.Project}
}

// AssignedTo reports whether the task is assigned to username at provider.
func (t Task) AssignedTo(username, provider string) bool {
	return t.Assignee != nil && t.Assignee.Is(username, provider)
}

// Tasks is a collection of tasks. Some views cannot register tasks or list the
// unassigned ones; they fail with ErrUnsupported.
type Tasks interface {
	// OfContributor returns the tasks assigned to username at provider.
	OfContributor(ctx context.Context, username, provider string) (Tasks, error)

	// OfProject returns the tasks of the repository at provider.
	OfProject(ctx context.Context, repoFullName, provider string) (Tasks, error)

	// Register creates an unassigned task from the issue.
	Register(ctx context.Context, issue Issue) (Task, error)

	// Unassigned returns the tasks without an assignee.
	Unassigned(ctx context.Context) (Tasks, error)

	// Assign gives an unassigned task to contributor and returns the stored task.
	Assign(ctx context.Context, task TaskKey, contributor Contributor, deadline time.Time) (Task, error)

	// All returns the tasks of this collection.
	All(ctx context.Context) ([]Task, error)
}
