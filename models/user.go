package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is fixed by convention: three roles map to pipeline stages, two get
// blanket visibility.
type Role int

const (
	RoleCollector    Role = 1
	RoleQualityTest  Role = 2
	RoleProcessor    Role = 3
	RoleManufacturer Role = 4
	RoleAdmin        Role = 5
	RoleConsumer     Role = 6
)

func (r Role) Valid() bool { return r >= RoleCollector && r <= RoleConsumer }

// FullAccess reports whether the role sees every batch regardless of stage.
func (r Role) FullAccess() bool { return r == RoleAdmin || r == RoleConsumer }

// User is the account behind a bearer token.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name"          json:"name"`
	Email        string             `bson:"email"         json:"email"`
	Role         Role               `bson:"role"          json:"role"`
	Address      string             `bson:"address"       json:"address"` // ledger identity of the actor
	Organization string             `bson:"organization,omitempty" json:"organization,omitempty"`
	PasswordHash string             `bson:"passwordHash"  json:"-"`
	CreatedAt    time.Time          `bson:"createdAt"     json:"createdAt"`
}

// Actor is the identity recorded on ledger writes.
type Actor struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Role         Role   `json:"role"`
	Organization string `json:"organization,omitempty"`
}

// Actor is the participant recorded on events the user creates.
func (u User) Actor() Actor {
	return Actor{Name: u.Name, Address: u.Address, Role: u.Role, Organization: u.Organization}
}
