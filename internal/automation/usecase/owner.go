package usecase

import (
	"context"
	"strings"
	"sync"

	authdomain "cyra-kanban/internal/auth/domain"
	"cyra-kanban/pkg/errutil"

	"go.uber.org/zap"
)

// UserFinder looks up accounts by email. The auth user repository satisfies it.
type UserFinder interface {
	FindByEmail(email string) (*authdomain.User, error)
}

// OwnerResolver names the account the automation actor works for.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context) (string, error)
}

type ownerResolver struct {
	ownerID    string
	ownerEmail string
	users      UserFinder

	mu       sync.Mutex
	resolved string
}

// NewOwnerResolver prefers a configured owner id and otherwise looks up ownerEmail.
func NewOwnerResolver(ownerID, ownerEmail string, users UserFinder) OwnerResolver {
	return &ownerResolver{
		ownerID:    strings.TrimSpace(ownerID),
		ownerEmail: strings.TrimSpace(ownerEmail),
		users:      users,
	}
}

func (r *ownerResolver) ResolveOwner(ctx context.Context) (string, error) {
	if r.ownerID != "" {
		return r.ownerID, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved != "" {
		return r.resolved, nil
	}
	if r.ownerEmail == "" || r.users == nil {
		return "", errutil.NewNotFound("User not found")
	}

	user, err := r.users.FindByEmail(r.ownerEmail)
	if err != nil {
		zap.L().Error("[Automation] Failed to resolve owner", zap.String("email", r.ownerEmail), zap.Error(err))
		return "", errutil.NewInternal("Failed to resolve owner", errutil.WithErr(err))
	}
	if user == nil {
		return "", errutil.NewNotFound("User not found")
	}
	r.resolved = user.ID
	return r.resolved, nil
}
