package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"finledger/internal/core"
)

// FallbackPrefix is used for project types without a registered prefix.
const FallbackPrefix = "NCX"

var projectPrefixes = map[string]string{
	"Web":        "NCW",
	"Mobile":     "NCM",
	"Design":     "NCD",
	"Marketing":  "NCK",
	"Consulting": "NCC",
}

// ProjectPrefix returns the custom id prefix of a project type.
func ProjectPrefix(projectType string) string {
	if p, ok := projectPrefixes[projectType]; ok {
		return p
	}
	return FallbackPrefix
}

// nextCustomID derives the next code from the live count of projects sharing
// the prefix. Deleting a project can therefore hand its number out again.
func nextCustomID(projects []core.Project, projectType string) string {
	prefix := ProjectPrefix(projectType)
	n := 0
	for _, p := range projects {
		if strings.HasPrefix(p.CustomID, prefix) {
			n++
		}
	}
	return fmt.Sprintf("%s%04d", prefix, n+1)
}

type ProjectInput struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Client       core.ClientInfo `json:"clientInfo"`
	AgreedAmount core.Money      `json:"agreedAmount"`
}

func (in ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProject, core.ErrEmptyName)
	}
	if err := in.AgreedAmount.Validate(); err != nil {
		return fmt.Errorf("%w: agreed amount: %w", ErrInvalidProject, err)
	}
	return nil
}

// ProjectUpdate carries the metadata fields that may change after creation.
// Nil fields are left untouched.
type ProjectUpdate struct {
	Name         *string          `json:"name,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Client       *core.ClientInfo `json:"clientInfo,omitempty"`
	AgreedAmount *core.Money      `json:"agreedAmount,omitempty"`
}

// CreateProject registers a new project with an empty payment history.
func (s *Store) CreateProject(ctx context.Context, in ProjectInput) (core.Project, error) {
	if err := in.Validate(); err != nil {
		return core.Project{}, err
	}
	status := in.Status
	var created core.Project
	err := s.mutate(ctx, "create_project", func(st *Snapshot) error {
		if status == "" && len(st.Catalog.ProjectStatuses) > 0 {
			status = st.Catalog.ProjectStatuses[0]
		}
		created = core.Project{
			ID:           s.newID(),
			CustomID:     nextCustomID(st.Projects, in.Type),
			Name:         strings.TrimSpace(in.Name),
			Type:         in.Type,
			Status:       status,
			Client:       in.Client,
			AgreedAmount: in.AgreedAmount,
			History:      []core.Payment{},
			CreatedAt:    core.DateOf(s.now()),
		}
		st.Projects = append(st.Projects, created)
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}
	s.logger.InfoContext(ctx, "Project created",
		"project_id", created.ID,
		"custom_id", created.CustomID)
	return created, nil
}

// ChangeStatus updates the project status. Balances are not touched.
func (s *Store) ChangeStatus(ctx context.Context, projectID, status string) error {
	return s.mutate(ctx, "change_status", func(st *Snapshot) error {
		p := st.project(projectID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		p.Status = status
		return nil
	})
}

// UpdateProject changes project metadata. The custom id and the payment
// history are never modified here.
func (s *Store) UpdateProject(ctx context.Context, projectID string, u ProjectUpdate) (core.Project, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return core.Project{}, fmt.Errorf("%w: %w", ErrInvalidProject, core.ErrEmptyName)
	}
	if u.AgreedAmount != nil {
		if err := u.AgreedAmount.Validate(); err != nil {
			return core.Project{}, fmt.Errorf("%w: agreed amount: %w", ErrInvalidProject, err)
		}
	}
	var updated core.Project
	err := s.mutate(ctx, "update_project", func(st *Snapshot) error {
		p := st.project(projectID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		if u.Name != nil {
			p.Name = strings.TrimSpace(*u.Name)
		}
		if u.Type != nil {
			p.Type = *u.Type
		}
		if u.Client != nil {
			p.Client = *u.Client
		}
		if u.AgreedAmount != nil {
			p.AgreedAmount = *u.AgreedAmount
		}
		updated = *p
		return nil
	})
	return updated, err
}

// RecordPayment books a payment against an existing project as project
// income.
func (s *Store) RecordPayment(ctx context.Context, projectID string, amount core.Money, date core.Date, note string) (ApplyResult, error) {
	return s.apply(ctx, core.Transaction{
		Type:        core.ProjectIncome,
		Amount:      amount,
		Date:        date,
		ProjectID:   projectID,
		Description: note,
	}, true)
}

// DeleteProject removes a project together with its income.
//
// Every project income transaction of the project is deleted from the log and
// their sum is taken off income and balance, so the totals keep matching a
// replay of the remaining log. On a consistent ledger that sum equals the
// payment history; a mismatch is logged. This is the only operation that
// hard-deletes audit entries and it cannot be undone.
// Other transactions that reference the project are reversed normally.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	var removed core.Money
	var purged int
	err := s.mutate(ctx, "delete_project", func(st *Snapshot) error {
		p := st.project(projectID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		paid := p.Paid()

		removed = core.Zero
		var others []string
		kept := st.Transactions[:0:0]
		for _, tx := range st.Transactions {
			switch {
			case tx.ProjectID != projectID:
				kept = append(kept, tx)
			case tx.Type == core.ProjectIncome:
				removed = removed.Add(tx.Amount)
				purged++
			default:
				kept = append(kept, tx)
				others = append(others, tx.ID)
			}
		}
		if !removed.Equal(paid) {
			s.logger.WarnContext(ctx, "Project history does not match its income transactions",
				"project_id", projectID,
				"history", paid.String(),
				"transactions", removed.String())
		}
		st.Transactions = kept
		for _, id := range others {
			s.reverseTransaction(st, id)
		}

		st.Totals.Income = st.Totals.Income.Sub(removed)
		st.Totals.Balance = st.Totals.Balance.Sub(removed)
		st.Projects = slices.DeleteFunc(st.Projects, func(p core.Project) bool { return p.ID == projectID })
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "Project deleted",
		"project_id", projectID,
		"income_removed", removed.String(),
		"transactions_purged", purged)
	return nil
}

// Projects returns a copy of the projects.
func (s *Store) Projects() []core.Project {
	return s.Snapshot().Projects
}

// Project returns a copy of a single project.
func (s *Store) Project(id string) (core.Project, error) {
	snap := s.Snapshot()
	p := snap.project(id)
	if p == nil {
		return core.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return *p, nil
}
