package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"selfx-go/internal/selfx"
)

// tasks is the task collection. Filters narrow it to an assignee, a project
// or the unassigned tasks; filtering happens in SQL.
type tasks struct {
	s          *Storage
	assignee   *selfx.Contributor
	project    *selfx.ProjectID
	unassigned bool
}

const selectTasks = `SELECT issue_id, repo_full_name, provider, role, estimation, assignee, assigned_at, deadline
	FROM tasks`

func (t *tasks) narrowed() *tasks {
	out := *t
	return &out
}

func (t *tasks) OfContributor(_ context.Context, username, provider string) (selfx.Tasks, error) {
	if t.unassigned {
		return nil, selfx.Unsupported("unassigned tasks have no contributor")
	}
	out := t.narrowed()
	out.assignee = &selfx.Contributor{Username: username, Provider: provider}
	return out, nil
}

func (t *tasks) OfProject(_ context.Context, repoFullName, provider string) (selfx.Tasks, error) {
	out := t.narrowed()
	out.project = &selfx.ProjectID{RepoFullName: repoFullName, Provider: provider}
	return out, nil
}

func (t *tasks) Unassigned(context.Context) (selfx.Tasks, error) {
	if t.assignee != nil {
		return nil, selfx.Unsupported("contributor tasks are always assigned")
	}
	out := t.narrowed()
	out.unassigned = true
	return out, nil
}

func (t *tasks) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if t.assignee != nil {
		conds = append(conds, "assignee = ?", "provider = ?")
		args = append(args, t.assignee.Username, t.assignee.Provider)
	}
	if t.project != nil {
		conds = append(conds, "repo_full_name = ?", "provider = ?")
		args = append(args, t.project.RepoFullName, t.project.Provider)
	}
	if t.unassigned {
		conds = append(conds, "assignee IS NULL")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// All returns the tasks in registration order.
func (t *tasks) All(ctx context.Context) ([]selfx.Task, error) {
	where, args := t.where()
	rows, err := t.s.query(ctx, t.s.db, selectTasks+where+` ORDER BY registered_at, issue_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []selfx.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

func (t *tasks) Register(ctx context.Context, issue selfx.Issue) (selfx.Task, error) {
	if t.assignee != nil {
		return selfx.Task{}, selfx.Unsupported("contributor tasks cannot register new tasks")
	}
	if t.project != nil && issue.Project() != *t.project {
		return selfx.Task{}, fmt.Errorf("issue of %s registered on tasks of %s", issue.Project(), *t.project)
	}
	if _, err := selfx.ParseRole(string(issue.Role)); err != nil {
		return selfx.Task{}, err
	}
	_, err := t.s.exec(ctx, t.s.db,
		`INSERT INTO tasks (issue_id, repo_full_name, provider, role, estimation, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.RepoFullName, issue.Provider, string(issue.Role), issue.Estimation,
		formatTime(t.s.clock.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return selfx.Task{}, fmt.Errorf("task %s of %s: %w", issue.ID, issue.Project(), selfx.ErrAlreadyExists)
		}
		return selfx.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return t.get(ctx, selfx.TaskKey{IssueID: issue.ID, Project: issue.Project()})
}

// Assign sets the assignee of an unassigned task.
func (t *tasks) Assign(ctx context.Context, key selfx.TaskKey, contributor selfx.Contributor, deadline time.Time) (selfx.Task, error) {
	if t.assignee != nil {
		return selfx.Task{}, selfx.Unsupported("contributor tasks are already assigned")
	}
	if contributor.Provider != key.Project.Provider {
		return selfx.Task{}, fmt.Errorf("contributor %s cannot work on %s", contributor, key.Project)
	}
	res, err := t.s.exec(ctx, t.s.db,
		`UPDATE tasks SET assignee = ?, assigned_at = ?, deadline = ?
		WHERE issue_id = ? AND repo_full_name = ? AND provider = ? AND assignee IS NULL`,
		contributor.Username, formatTime(t.s.clock.Now()), nullTime(deadline),
		key.IssueID, key.Project.RepoFullName, key.Project.Provider)
	if err != nil {
		return selfx.Task{}, fmt.Errorf("assigning task: %w", err)
	}
	if err := checkAffected(res, "unassigned task "+key.IssueID+" of "+key.Project.String()); err != nil {
		return selfx.Task{}, err
	}
	return t.get(ctx, key)
}

func (t *tasks) get(ctx context.Context, key selfx.TaskKey) (selfx.Task, error) {
	task, err := scanTask(t.s.queryRow(ctx, t.s.db,
		selectTasks+` WHERE issue_id = ? AND repo_full_name = ? AND provider = ?`,
		key.IssueID, key.Project.RepoFullName, key.Project.Provider))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return selfx.Task{}, fmt.Errorf("task %s of %s: %w", key.IssueID, key.Project, selfx.ErrNotFound)
		}
		return selfx.Task{}, fmt.Errorf("reading task: %w", err)
	}
	return *task, nil
}

func scanTask(row rowScanner) (*selfx.Task, error) {
	var (
		task       selfx.Task
		role       string
		assignee   sql.NullString
		assignedAt sql.NullString
		deadline   sql.NullString
	)
	err := row.Scan(&task.IssueID, &task.Project.RepoFullName, &task.Project.Provider, &role,
		&task.Estimation, &assignee, &assignedAt, &deadline)
	if err != nil {
		return nil, err
	}
	task.Role = selfx.Role(role)
	if assignee.Valid {
		task.Assignee = &selfx.Contributor{Username: assignee.String, Provider: task.Project.Provider}
	}
	if task.AssignedAt, err = parseNullTime(assignedAt); err != nil {
		return nil, err
	}
	if task.Deadline, err = parseNullTime(deadline); err != nil {
		return nil, err
	}
	return &task, nil
}
