package selfx

// Storage is the persistence collaborator. Each accessor returns the full
// collection; scoping happens through the collection's filter methods.
type Storage interface {
	Projects() Projects
	Contributors() Contributors
	Contracts() Contracts
	Invoices() Invoices
	Payments() Payments
	Wallets() Wallets
	Tasks() Tasks

	// Close releases the underlying connection.
	Close() error
}
