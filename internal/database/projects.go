package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"selfx-go/internal/selfx"
)

type projects struct {
	s *Storage
}

func (p *projects) Register(ctx context.Context, project selfx.Project) (selfx.Project, error) {
	if err := selfx.ValidateProject(project); err != nil {
		return selfx.Project{}, err
	}
	_, err := p.s.exec(ctx, p.s.db,
		`INSERT INTO projects (repo_full_name, provider, owner) VALUES (?, ?, ?)`,
		project.RepoFullName, project.Provider, project.Owner)
	if err != nil {
		if isUniqueViolation(err) {
			return selfx.Project{}, fmt.Errorf("project %s: %w", project.ID(), selfx.ErrAlreadyExists)
		}
		return selfx.Project{}, fmt.Errorf("inserting project: %w", err)
	}
	return project, nil
}

func (p *projects) GetByID(ctx context.Context, id selfx.ProjectID) (*selfx.Project, error) {
	var project selfx.Project
	err := p.s.queryRow(ctx, p.s.db,
		`SELECT repo_full_name, provider, owner FROM projects WHERE repo_full_name = ? AND provider = ?`,
		id.RepoFullName, id.Provider).Scan(&project.RepoFullName, &project.Provider, &project.Owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding project: %w", err)
	}
	return &project, nil
}

func (p *projects) OwnedBy(ctx context.Context, owner selfx.Contributor) ([]selfx.Project, error) {
	return p.list(ctx,
		`SELECT repo_full_name, provider, owner FROM projects WHERE owner = ? AND provider = ?
		ORDER BY repo_full_name`, owner.Username, owner.Provider)
}

func (p *projects) All(ctx context.Context) ([]selfx.Project, error) {
	return p.list(ctx, `SELECT repo_full_name, provider, owner FROM projects ORDER BY provider, repo_full_name`)
}

func (p *projects) list(ctx context.Context, query string, args ...any) ([]selfx.Project, error) {
	rows, err := p.s.query(ctx, p.s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []selfx.Project
	for rows.Next() {
		var project selfx.Project
		if err := rows.Scan(&project.RepoFullName, &project.Provider, &project.Owner); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

type contributors struct {
	s *Storage
}

// Register inserts the contributor unless it is already stored.
func (c *contributors) Register(ctx context.Context, username, provider string) (selfx.Contributor, error) {
	if err := c.register(ctx, c.s.db, username, provider); err != nil {
		return selfx.Contributor{}, err
	}
	return selfx.Contributor{Username: username, Provider: provider}, nil
}

func (c *contributors) register(ctx context.Context, q execer, username, provider string) error {
	if username == "" {
		return fmt.Errorf("contributor username is required")
	}
	if !selfx.ValidProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	_, err := c.s.exec(ctx, q,
		`INSERT INTO contributors (username, provider) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		username, provider)
	if err != nil {
		return fmt.Errorf("inserting contributor: %w", err)
	}
	return nil
}

func (c *contributors) GetByID(ctx context.Context, username, provider string) (*selfx.Contributor, error) {
	var contributor selfx.Contributor
	err := c.s.queryRow(ctx, c.s.db,
		`SELECT username, provider FROM contributors WHERE username = ? AND provider = ?`,
		username, provider).Scan(&contributor.Username, &contributor.Provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding contributor: %w", err)
	}
	return &contributor, nil
}

func (c *contributors) OfProject(ctx context.Context, project selfx.ProjectID) ([]selfx.Contributor, error) {
	return c.list(ctx,
		`SELECT DISTINCT username, provider FROM contracts
		WHERE repo_full_name = ? AND provider = ? ORDER BY username`,
		project.RepoFullName, project.Provider)
}

func (c *contributors) All(ctx context.Context) ([]selfx.Contributor, error) {
	return c.list(ctx, `SELECT username, provider FROM contributors ORDER BY provider, username`)
}

func (c *contributors) list(ctx context.Context, query string, args ...any) ([]selfx.Contributor, error) {
	rows, err := c.s.query(ctx, c.s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contributors: %w", err)
	}
	defer rows.Close()

	var out []selfx.Contributor
	for rows.Next() {
		var contributor selfx.Contributor
		if err := rows.Scan(&contributor.Username, &contributor.Provider); err != nil {
			return nil, fmt.Errorf("scanning contributor: %w", err)
		}
		out = append(out, contributor)
	}
	return out, rows.Err()
}
