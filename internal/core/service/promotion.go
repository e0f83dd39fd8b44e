package service

import "github.com/musichub/catalog-api/internal/core/domain"

// PromotionPolicy decides the role a user is moved to on a successful login.
// It returns the target role and whether a change is due.
type PromotionPolicy func(current domain.Role) (domain.Role, bool)

// PromoteGuestToAdmin lifts a guest straight to admin on first login and leaves
// every other role alone.
//
// TODO: replace with a registrant-selected role once signup carries one; this
// grants the highest privilege to every new account.
func PromoteGuestToAdmin(current domain.Role) (domain.Role, bool) {
	if current == domain.RoleGuest {
		return domain.RoleAdmin, true
	}
	return current, false
}

// NoPromotion keeps the stored role unchanged.
func NoPromotion(current domain.Role) (domain.Role, bool) {
	return current, false
}
