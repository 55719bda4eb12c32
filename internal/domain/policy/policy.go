// Package policy decides whether an actor may act on an advertisement.
// Decisions are pure: they read only the actor and the advertisement passed in.
package policy

import (
	"github.com/oksasatya/adhunt/internal/domain/entity"
)

type Action int

const (
	ActionView Action = iota
	ActionEdit
	ActionDelete
	ActionModerate
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	case ActionModerate:
		return "moderate"
	default:
		return "unknown"
	}
}

// Actor is the identity behind a request. The zero value is an anonymous actor.
// Role must come from the stored user record, see ActorFor.
type Actor struct {
	UserID string
	Email  string
	Role   entity.Role
}

// Anonymous returns the actor for unauthenticated requests.
func Anonymous() Actor { return Actor{} }

// ActorFor builds an actor from a stored user.
func ActorFor(u *entity.User) Actor {
	if u == nil {
		return Anonymous()
	}
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (a Actor) Authenticated() bool { return a.UserID != "" }

// IsModerator matches the role exhaustively; unknown roles get no privileges.
func (a Actor) IsModerator() bool {
	if !a.Authenticated() {
		return false
	}
	switch a.Role {
	case entity.RoleModerator:
		return true
	case entity.RoleUser:
		return false
	default:
		return false
	}
}

func (a Actor) owns(ad *entity.Advertisement) bool {
	return a.Authenticated() && ad != nil && ad.AuthorID == a.UserID
}

// CanPerform reports whether actor may perform action on ad.
func CanPerform(actor Actor, action Action, ad *entity.Advertisement) bool {
	switch action {
	case ActionView:
		if ad == nil {
			return false
		}
		if ad.Status == entity.StatusActive {
			return true
		}
		return actor.owns(ad) || actor.IsModerator()
	case ActionEdit, ActionDelete:
		return actor.owns(ad)
	case ActionModerate:
		return actor.IsModerator()
	default:
		return false
	}
}
