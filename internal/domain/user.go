package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Role 角色：按权限从低到高
type Role string

const (
	RoleAuthor   Role = "AUTHOR"
	RoleReviewer Role = "REVIEWER"
	RoleEditor   Role = "EDITOR"
	RoleDean     Role = "DEAN"
)

// roleRanks 全序 AUTHOR < REVIEWER < EDITOR < DEAN
var roleRanks = map[Role]int{
	RoleAuthor:   1,
	RoleReviewer: 2,
	RoleEditor:   3,
	RoleDean:     4,
}

func (r Role) Rank() int { return roleRanks[r] }

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:191" json:"email"`
	Name         string `gorm:"size:64" json:"name"`
	PasswordHash string `gorm:"size:191" json:"-"`
	Role         Role   `gorm:"size:16;not null;default:AUTHOR" json:"role"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`

	// 可选档案字段
	Affiliation string `gorm:"size:191" json:"affiliation,omitempty"`
	ORCID       string `gorm:"size:32" json:"orcid,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// FindByID returns (nil, nil) when no such user exists.
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int, q string) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	UpdateRole(ctx context.Context, id string, role Role) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}
