package storage

import (
	"context"

	apperrors "github.com/creator-sync/internal/errors"
)

// MembershipRepository answers whether a user belongs to an organization
type MembershipRepository struct {
	db *PostgresDB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *PostgresDB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// IsMember reports whether userID is a member of orgID
func (r *MembershipRepository) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var ok bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2)`,
		orgID, userID).Scan(&ok)
	if err != nil {
		return false, apperrors.NewDatabaseError("check membership", err)
	}
	return ok, nil
}

// AddMember grants userID membership of orgID
func (r *MembershipRepository) AddMember(ctx context.Context, orgID, userID, role string) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO org_members (org_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		orgID, userID, role)
	if err != nil {
		return apperrors.NewDatabaseError("add member", err)
	}
	return nil
}
