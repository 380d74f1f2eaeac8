package sqlite

import (
	"context"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// DonationRepository implements persistence.DonationRepository using SQLite.
type DonationRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDonationRepository creates a new SQLite donation repository.
func NewDonationRepository(pool *ConnectionPool) *DonationRepository {
	return &DonationRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateDonation records a completed payment-gateway order.
func (r *DonationRepository) CreateDonation(ctx context.Context, donation persistence.Donation) error {
	if donation.ID == "" || donation.OrderID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO donations (id, order_id, payment_id, amount, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		donation.ID,
		donation.OrderID,
		donation.PaymentID,
		donation.Amount,
		donation.Currency,
		donation.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}
