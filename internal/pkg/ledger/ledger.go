package ledger

import (
	"github.com/nzci/enrolbridge/app/models"
)

// Store is the durable sale ledger. Appends happen before any provisioning
// attempt and are the source of truth for reconciliation; outcome updates are
// best-effort. The backing medium (local file, database) is swappable without
// touching orchestration logic.
type Store interface {
	// Append writes one sale record with a pending outcome.
	Append(record models.SaleRecord) error
	// RecordOutcome stores the provisioning outcome for a sale.
	RecordOutcome(saleID, outcome string) error
	// ListPending returns sales whose latest outcome is not "enrolled",
	// oldest first. Used by the reconciliation entry point.
	ListPending() ([]models.SaleRecord, error)
}
