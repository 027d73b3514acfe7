package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"selfx-go/internal/selfx"
)

type contracts struct {
	s *Storage
}

const selectContracts = `SELECT c.repo_full_name, c.provider, p.owner, c.username, c.role, c.hourly_rate
	FROM contracts c
	JOIN projects p ON p.repo_full_name = c.repo_full_name AND p.provider = c.provider`

func (c *contracts) OfProject(ctx context.Context, project selfx.ProjectID) ([]*selfx.Contract, error) {
	return c.list(ctx, selectContracts+` WHERE c.repo_full_name = ? AND c.provider = ?
		ORDER BY c.username, c.role`, project.RepoFullName, project.Provider)
}

func (c *contracts) OfContributor(ctx context.Context, contributor selfx.Contributor) ([]*selfx.Contract, error) {
	return c.list(ctx, selectContracts+` WHERE c.username = ? AND c.provider = ?
		ORDER BY c.repo_full_name, c.role`, contributor.Username, contributor.Provider)
}

func (c *contracts) All(ctx context.Context) ([]*selfx.Contract, error) {
	return c.list(ctx, selectContracts+` ORDER BY c.provider, c.repo_full_name, c.username, c.role`)
}

func (c *contracts) FindByID(ctx context.Context, id selfx.ContractID) (*selfx.Contract, error) {
	row := c.s.queryRow(ctx, c.s.db, selectContracts+`
		WHERE c.repo_full_name = ? AND c.provider = ? AND c.username = ? AND c.role = ?`,
		id.Project.RepoFullName, id.Project.Provider, id.Contributor.Username, string(id.Role))
	contract, err := c.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding contract: %w", err)
	}
	return contract, nil
}

// Register stores the contract, registering the contributor first if needed.
func (c *contracts) Register(ctx context.Context, project selfx.Project, contributor selfx.Contributor, hourlyRate decimal.Decimal, role selfx.Role) (*selfx.Contract, error) {
	contract := selfx.NewContract(project, contributor, hourlyRate, role, c.s)
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	if contributor.Provider != project.Provider {
		return nil, fmt.Errorf("contributor %s cannot work on %s project", contributor, project.Provider)
	}

	err := c.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := (&contributors{s: c.s}).register(ctx, tx, contributor.Username, contributor.Provider); err != nil {
			return err
		}
		_, err := c.s.exec(ctx, tx,
			`INSERT INTO contracts (repo_full_name, provider, username, role, hourly_rate, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			project.RepoFullName, project.Provider, contributor.Username, string(role),
			hourlyRate.String(), formatTime(c.s.clock.Now()))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("contract %s: %w", contract.ID(), selfx.ErrAlreadyExists)
			}
			return fmt.Errorf("inserting contract: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (c *contracts) UpdateHourlyRate(ctx context.Context, id selfx.ContractID, rate decimal.Decimal) (*selfx.Contract, error) {
	if rate.IsNegative() {
		return nil, fmt.Errorf("hourly rate %s: %w", rate, selfx.ErrInvalidAmount)
	}
	res, err := c.s.exec(ctx, c.s.db,
		`UPDATE contracts SET hourly_rate = ?
		WHERE repo_full_name = ? AND provider = ? AND username = ? AND role = ?`,
		rate.String(), id.Project.RepoFullName, id.Project.Provider, id.Contributor.Username, string(id.Role))
	if err != nil {
		return nil, fmt.Errorf("updating hourly rate: %w", err)
	}
	if err := checkAffected(res, "contract "+id.String()); err != nil {
		return nil, err
	}
	return c.FindByID(ctx, id)
}

func (c *contracts) Remove(ctx context.Context, id selfx.ContractID) error {
	res, err := c.s.exec(ctx, c.s.db,
		`DELETE FROM contracts WHERE repo_full_name = ? AND provider = ? AND username = ? AND role = ?`,
		id.Project.RepoFullName, id.Project.Provider, id.Contributor.Username, string(id.Role))
	if err != nil {
		return fmt.Errorf("deleting contract: %w", err)
	}
	return checkAffected(res, "contract "+id.String())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (c *contracts) scan(row rowScanner) (*selfx.Contract, error) {
	var (
		project     selfx.Project
		contributor selfx.Contributor
		role        string
		rate        string
	)
	if err := row.Scan(&project.RepoFullName, &project.Provider, &project.Owner, &contributor.Username, &role, &rate); err != nil {
		return nil, err
	}
	contributor.Provider = project.Provider
	hourlyRate, err := parseDecimal(rate)
	if err != nil {
		return nil, err
	}
	return selfx.NewContract(project, contributor, hourlyRate, selfx.Role(role), c.s), nil
}

func (c *contracts) list(ctx context.Context, query string, args ...any) ([]*selfx.Contract, error) {
	rows, err := c.s.query(ctx, c.s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	var out []*selfx.Contract
	for rows.Next() {
		contract, err := c.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contract: %w", err)
		}
		out = append(out, contract)
	}
	return out, rows.Err()
}
