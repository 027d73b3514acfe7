package selfx

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Role is a contributor's role in a contract.
type Role string

const (
	RoleArchitect Role = "ARCH"
	RoleDeveloper Role = "DEV"
	RoleReviewer  Role = "REV"
	RoleQA        Role = "QA"
	RoleBot       Role = "BOT"
	RolePM        Role = "PM"
	RolePO        Role = "PO"
)

// Roles lists every valid role.
var Roles = []Role{RoleArchitect, RoleDeveloper, RoleReviewer, RoleQA, RoleBot, RolePM, RolePO}

// ParseRole converts s (case-insensitive) to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// ContractID identifies a contract. A contributor may hold several contracts
// with the same project only with different roles.
type ContractID struct {
	Project     ProjectID
	Contributor Contributor
	Role        Role
}

func (id ContractID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Project, id.Contributor.Username, id.Role)
}

// Contract binds a contributor to a project with a role and an hourly rate.
// The rate is expressed in USD cents and is not part of the identity.
type Contract struct {
	project     Project
	contributor Contributor
	hourlyRate  decimal.Decimal
	role        Role
	storage     Storage
}

// NewContract builds a contract backed by storage.
func NewContract(project Project, contributor Contributor, hourlyRate decimal.Decimal, role Role, storage Storage) *Contract {
	return &Contract{
		project:     project,
		contributor: contributor,
		hourlyRate:  hourlyRate,
		role:        role,
		storage:     storage,
	}
}

func (c *Contract) Project() Project { return c.project }

func (c *Contract) Contributor() Contributor { return c.contributor }

func (c *Contract) HourlyRate() decimal.Decimal { return c.hourlyRate }

func (c *Contract) Role() Role { return c.role }

// ID returns the contract's identity.
func (c *Contract) ID() ContractID {
	return ContractID{
		Project:     c.project.ID(),
		Contributor: c.contributor,
		Role:        c.role,
	}
}

// Invoices returns the invoices of this contract as filtered by the storage.
func (c *Contract) Invoices() Invoices {
	return c.storage.Invoices().OfContract(c.ID())
}

// WithHourlyRate returns a copy of the contract with a different rate.
// The identity, and therefore the invoice association, is unchanged.
func (c *Contract) WithHourlyRate(rate decimal.Decimal) *Contract {
	out := *c
	out.hourlyRate = rate
	return &out
}

// Equal reports whether both contracts have the same project, contributor and role.
func (c *Contract) Equal(other *Contract) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.ID() == other.ID()
}

// Validate checks the contract's attributes.
func (c *Contract) Validate() error {
	if c.hourlyRate.IsNegative() {
		return fmt.Errorf("hourly rate %s: %w", c.hourlyRate, ErrInvalidAmount)
	}
	if _, err := ParseRole(string(c.role)); err != nil {
		return err
	}
	return ValidateProject(c.project)
}

// Contracts provides access to stored contracts.
type Contracts interface {
	// OfProject returns the contracts of a project.
	OfProject(ctx context.Context, project ProjectID) ([]*Contract, error)

	// OfContributor returns the contracts of a contributor.
	OfContributor(ctx context.Context, contributor Contributor) ([]*Contract, error)

	// FindByID returns the contract or nil if it does not exist.
	FindByID(ctx context.Context, id ContractID) (*Contract, error)

	// Register stores a new contract.
	Register(ctx context.Context, project Project, contributor Contributor, hourlyRate decimal.Decimal, role Role) (*Contract, error)

	// UpdateHourlyRate changes the rate and returns the updated contract.
	UpdateHourlyRate(ctx context.Context, id ContractID, rate decimal.Decimal) (*Contract, error)

	// Remove deletes the contract. Invoices are left untouched.
	Remove(ctx context.Context, id ContractID) error

	// All returns every stored contract.
	All(ctx context.Context) ([]*Contract, error)
}
