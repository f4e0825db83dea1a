package auth

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Groups maps role names to authorization groups and keeps the single
// membership row each account holds.
type Groups interface {
	GetOrCreateByName(ctx context.Context, name string) (*Group, error)
	GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*Group, error)
	SyncMembership(ctx context.Context, userID, groupID uuid.UUID) error
	SyncMembershipTx(ctx context.Context, tx bun.IDB, userID, groupID uuid.UUID) error
	MembershipFor(ctx context.Context, userID uuid.UUID) (*GroupMembership, error)
}

type groups struct {
	db *bun.DB
}

var _ Groups = (*groups)(nil)

func NewGroupsRepository(db *bun.DB) Groups {
	return &groups{db: db}
}

func (g *groups) GetOrCreateByName(ctx context.Context, name string) (*Group, error) {
	return g.GetOrCreateByNameTx(ctx, g.db, name)
}

func (g *groups) GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*Group, error) {
	candidate := &Group{
		ID:   uuid.New(),
		Name: name,
	}

	_, err := tx.NewInsert().
		Model(candidate).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, WrapStoreError(err, "create group")
	}

	record := &Group{}
	err = tx.NewSelect().Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, WrapStoreError(err, "load group")
	}

	return record, nil
}

func (g *groups) SyncMembership(ctx context.Context, userID, groupID uuid.UUID) error {
	return g.SyncMembershipTx(ctx, g.db, userID, groupID)
}

func (g *groups) SyncMembershipTx(ctx context.Context, tx bun.IDB, userID, groupID uuid.UUID) error {
	record := &GroupMembership{
		ID:      uuid.New(),
		UserID:  userID,
		GroupID: groupID,
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("group_id = EXCLUDED.group_id").
		Exec(ctx)
	if err != nil {
		return WrapStoreError(err, "sync group membership")
	}

	return nil
}

func (g *groups) MembershipFor(ctx context.Context, userID uuid.UUID) (*GroupMembership, error) {
	record := &GroupMembership{}
	err := g.db.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// GroupSynchronizer projects an account's role into its group
// membership. Membership is derived state: it is recomputed from the
// role after registration, never edited directly.
type GroupSynchronizer struct {
	Repo   Groups
	Logger Logger
}

func NewGroupSynchronizer(repo Groups, logger Logger) *GroupSynchronizer {
	if logger == nil {
		logger = defLogger{}
	}
	return &GroupSynchronizer{Repo: repo, Logger: logger}
}

func (s *GroupSynchronizer) Sync(ctx context.Context, user *User) error {
	if user == nil {
		return ErrNoEmptyString
	}

	group, err := s.Repo.GetOrCreateByName(ctx, string(user.Role))
	if err != nil {
		return err
	}

	return s.Repo.SyncMembership(ctx, user.ID, group.ID)
}
