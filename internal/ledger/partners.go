package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"finledger/internal/core"
)

// AddPartner adds a partner with no withdrawals.
func (s *Store) AddPartner(ctx context.Context, name string, percentage float64) (core.Partner, error) {
	if strings.TrimSpace(name) == "" {
		return core.Partner{}, fmt.Errorf("%w: %w", ErrInvalidPartner, core.ErrEmptyName)
	}
	if err := core.ValidatePercentage(percentage); err != nil {
		return core.Partner{}, err
	}
	p := core.Partner{
		ID:          s.newID(),
		Name:        strings.TrimSpace(name),
		Percentage:  percentage,
		Withdrawals: []core.Withdrawal{},
	}
	err := s.mutate(ctx, "add_partner", func(st *Snapshot) error {
		st.Partners = append(st.Partners, p)
		return nil
	})
	if err != nil {
		return core.Partner{}, err
	}
	return p, nil
}

// RemovePartner drops a partner and its withdrawal history. The withdrawal
// transactions stay in the log so balances are unchanged.
func (s *Store) RemovePartner(ctx context.Context, partnerID string) error {
	return s.mutate(ctx, "remove_partner", func(st *Snapshot) error {
		if st.partner(partnerID) == nil {
			return fmt.Errorf("%w: %s", ErrPartnerNotFound, partnerID)
		}
		st.Partners = slices.DeleteFunc(st.Partners, func(p core.Partner) bool { return p.ID == partnerID })
		return nil
	})
}

// SetPartnerPercentage overwrites a partner's share. Percentages of other
// partners are not adjusted and the total may differ from 100.
func (s *Store) SetPartnerPercentage(ctx context.Context, partnerID string, percentage float64) error {
	if err := core.ValidatePercentage(percentage); err != nil {
		return err
	}
	return s.mutate(ctx, "set_partner_percentage", func(st *Snapshot) error {
		p := st.partner(partnerID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrPartnerNotFound, partnerID)
		}
		p.Percentage = percentage
		return nil
	})
}

// AddWithdrawal records money taken out by a partner. The amount is not
// checked against the partner's available share.
func (s *Store) AddWithdrawal(ctx context.Context, partnerID string, amount core.Money, date core.Date) (core.Transaction, error) {
	tx := core.Transaction{
		Type:      core.WithdrawalTx,
		Amount:    amount,
		Date:      date,
		PartnerID: partnerID,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	tx.ID = s.newID()
	err := s.mutate(ctx, "add_withdrawal", func(st *Snapshot) error {
		p := st.partner(partnerID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrPartnerNotFound, partnerID)
		}
		tx.Description = "Withdrawal " + p.Name
		s.applyTransaction(ctx, st, tx)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// PercentageSum is the sum of all partner percentages. It is reported, never
// enforced.
func (s *Store) PercentageSum() float64 {
	var sum float64
	for _, p := range s.current().Partners {
		sum += p.Percentage
	}
	return sum
}

// Partners returns a copy of the partners.
func (s *Store) Partners() []core.Partner {
	return s.Snapshot().Partners
}
