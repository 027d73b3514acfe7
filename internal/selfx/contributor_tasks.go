package selfx

import (
	"context"
	"slices"
	"time"
)

// ContributorTasks is the view of the tasks assigned to one contributor,
// keyed by (username, provider). Every task in the view has an assignee, so
// the view can neither register tasks nor list unassigned ones.
//
// The view filters whatever snapshot it was built from; it does not notice
// later changes to the storage.
type ContributorTasks struct {
	username string
	provider string
	tasks    []Task
	storage  Storage
}

var _ Tasks = (*ContributorTasks)(nil)

// NewContributorTasks builds the view over tasks, which the caller has
// already filtered for the contributor.
func NewContributorTasks(username, provider string, tasks []Task, storage Storage) *ContributorTasks {
	return &ContributorTasks{
		username: username,
		provider: provider,
		tasks:    tasks,
		storage:  storage,
	}
}

func (ct *ContributorTasks) Username() string { return ct.username }

func (ct *ContributorTasks) Provider() string { return ct.provider }

// OfContributor returns the receiver when the key matches, without reading
// storage. Otherwise it filters all stored tasks by assignee.
func (ct *ContributorTasks) OfContributor(ctx context.Context, username, provider string) (Tasks, error) {
	if ct.username == username && ct.provider == provider {
		return ct, nil
	}
	all, err := ct.storage.Tasks().All(ctx)
	if err != nil {
		return nil, err
	}
	var ofContributor []Task
	for _, t := range all {
		if t.AssignedTo(username, provider) {
			ofContributor = append(ofContributor, t)
		}
	}
	return NewContributorTasks(username, provider, ofContributor, ct.storage), nil
}

// OfProject keeps the tasks whose project matches both repoFullName and provider.
func (ct *ContributorTasks) OfProject(_ context.Context, repoFullName, provider string) (Tasks, error) {
	want := ProjectID{RepoFullName: repoFullName, Provider: provider}
	var ofProject []Task
	for _, t := range ct.tasks {
		if t.Project == want {
			ofProject = append(ofProject, t)
		}
	}
	return NewContributorTasks(ct.username, ct.provider, ofProject, ct.storage), nil
}

func (ct *ContributorTasks) Register(context.Context, Issue) (Task, error) {
	return Task{}, Unsupported("contributor tasks cannot register new tasks")
}

func (ct *ContributorTasks) Unassigned(context.Context) (Tasks, error) {
	return nil, Unsupported("contributor tasks are always assigned")
}

func (ct *ContributorTasks) Assign(context.Context, TaskKey, Contributor, time.Time) (Task, error) {
	return Task{}, Unsupported("contributor tasks are already assigned")
}

// All returns the tasks in backing order.
func (ct *ContributorTasks) All(context.Context) ([]Task, error) {
	return slices.Clone(ct.tasks), nil
}

// Len returns the number of tasks in the view.
func (ct *ContributorTasks) Len() int { return len(ct.tasks) }

// Equal reports whether other is a view with the same key over the same tasks.
func (ct *ContributorTasks) Equal(other *ContributorTasks) bool {
	if ct == nil || other == nil {
		return ct == other
	}
	if ct.username != other.username || ct.provider != other.provider {
		return false
	}
	return slices.EqualFunc(ct.tasks, other.tasks, func(a, b Task) bool {
		return a.Key() == b.Key()
	})
}
