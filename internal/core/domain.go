package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	ProjectIncome TransactionType = "project_income"
	FixedCostTx   TransactionType = "fixed_cost"
	VariableCost  TransactionType = "variable_cost"
	InvestmentTx  TransactionType = "investment"
	WithdrawalTx  TransactionType = "withdrawal"
	IncomeTx      TransactionType = "income"
	ExpenseTx     TransactionType = "expense"
)

const (
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Annual    Frequency = "Annual"
)

type (
	TransactionType string

	Frequency string

	// Transaction is an entry of the audit log. Category, PaymentDate and
	// Recurrence are only read by the fixed/variable cost and investment
	// branches.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		ProjectID   string          `json:"projectId,omitempty"`
		PartnerID   string          `json:"partnerId,omitempty"`
		Description string          `json:"description"`
		Category    string          `json:"category,omitempty"`
		PaymentDate Date            `json:"paymentDate"`
		Recurrence  *Recurrence     `json:"recurrence,omitempty"`
	}

	Recurrence struct {
		Frequency  Frequency `json:"frequency"`
		PaymentDay int       `json:"paymentDay"`
		StartDate  Date      `json:"startDate"`
		EndDate    Date      `json:"endDate"`
	}

	ClientInfo struct {
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
		Phone string `json:"phone,omitempty"`
	}

	// Payment is one line of a project's payment history.
	Payment struct {
		Date          Date   `json:"date"`
		Amount        Money  `json:"amount"`
		Note          string `json:"note"`
		TransactionID string `json:"transactionId"`
	}

	Project struct {
		ID           string     `json:"id"`
		CustomID     string     `json:"customId"`
		Name         string     `json:"name"`
		Type         string     `json:"type"`
		Status       string     `json:"status"`
		Client       ClientInfo `json:"clientInfo"`
		AgreedAmount Money      `json:"agreedAmount"`
		History      []Payment  `json:"history"`
		CreatedAt    Date       `json:"createdAt"`
	}

	FixedCost struct {
		ID            string      `json:"id"`
		TransactionID string      `json:"transactionId"`
		Amount        Money       `json:"amount"`
		Date          Date        `json:"date"`
		PaymentDate   Date        `json:"paymentDate"`
		Category      string      `json:"category"`
		Description   string      `json:"description"`
		Recurrence    *Recurrence `json:"recurrence,omitempty"`
	}

	VariableCostRecord struct {
		ID            string `json:"id"`
		TransactionID string `json:"transactionId"`
		Amount        Money  `json:"amount"`
		Date          Date   `json:"date"`
		Type          string `json:"type"`
		Description   string `json:"description"`
	}

	Investment struct {
		ID            string `json:"id"`
		TransactionID string `json:"transactionId"`
		Amount        Money  `json:"amount"`
		Date          Date   `json:"date"`
		Type          string `json:"type"`
		Description   string `json:"description"`
	}

	Withdrawal struct {
		Amount        Money  `json:"amount"`
		Date          Date   `json:"date"`
		TransactionID string `json:"transactionId"`
	}

	Partner struct {
		ID          string       `json:"id"`
		Name        string       `json:"name"`
		Percentage  float64      `json:"percentage"`
		Withdrawals []Withdrawal `json:"withdrawals"`
	}

	FinancialConfig struct {
		EmergencyFundPercentage float64 `json:"emergencyFundPercentage"`
		ReinvestmentPercentage  float64 `json:"reinvestmentPercentage"`
	}

	Catalog struct {
		Services          []string `json:"services"`
		ProjectTypes      []string `json:"projectTypes"`
		ProjectStatuses   []string `json:"projectStatuses"`
		VariableCostTypes []string `json:"variableCostTypes"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidPercentage  = errors.New("percentage must be between 0 and 100")
	ErrInvalidRecurrence  = errors.New("invalid recurrence")
	ErrEmptyName          = errors.New("empty name")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case ProjectIncome, FixedCostTx, VariableCost, InvestmentTx, WithdrawalTx, IncomeTx, ExpenseTx:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, Annual:
		return true
	}
	return false
}

// EffectiveDate is the date the transaction is booked on: Date, falling back
// to PaymentDate.
func (t Transaction) EffectiveDate() Date {
	return t.Date.Or(t.PaymentDate)
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	// only fixed costs may be booked on their payment date
	booked := t.Date
	if t.Type == FixedCostTx {
		booked = t.EffectiveDate()
	}
	if err := booked.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if t.Type == ProjectIncome && strings.TrimSpace(t.ProjectID) == "" {
		return errors.New("project income requires a project id")
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r Recurrence) Validate() error {
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrence, r.Frequency)
	}
	if r.PaymentDay < 1 || r.PaymentDay > 31 {
		return fmt.Errorf("%w: payment day %d", ErrInvalidRecurrence, r.PaymentDay)
	}
	if err := r.StartDate.Validate(); err != nil {
		return fmt.Errorf("%w: start date: %v", ErrInvalidRecurrence, err)
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidRecurrence)
	}
	return nil
}

// EffectiveDate is Date, falling back to PaymentDate.
func (f FixedCost) EffectiveDate() Date {
	return f.Date.Or(f.PaymentDate)
}

// Paid is the sum of the payment history.
func (p Project) Paid() Money {
	total := Zero
	for _, h := range p.History {
		total = total.Add(h.Amount)
	}
	return total
}

// Outstanding is the agreed amount not yet paid, never negative.
func (p Project) Outstanding() Money {
	return p.AgreedAmount.Sub(p.Paid()).NonNegative()
}

// Withdrawn sums the partner's withdrawals inside the period.
func (p Partner) Withdrawn(period Period) Money {
	total := Zero
	for _, w := range p.Withdrawals {
		if period.Contains(w.Date) {
			total = total.Add(w.Amount)
		}
	}
	return total
}

func ValidatePercentage(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return ErrInvalidPercentage
	}
	return nil
}

func (c FinancialConfig) Validate() error {
	if err := ValidatePercentage(c.EmergencyFundPercentage); err != nil {
		return fmt.Errorf("emergency fund: %w", err)
	}
	if err := ValidatePercentage(c.ReinvestmentPercentage); err != nil {
		return fmt.Errorf("reinvestment: %w", err)
	}
	return nil
}

// HasService reports whether name is already in the services catalog.
func (c Catalog) HasService(name string) bool {
	for _, s := range c.Services {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
