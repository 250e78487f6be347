package model

import "time"

// User is an account that can organize events and register for tickets.
type User struct {
	Id           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:150;not null"`
	Email        string    `json:"email" gorm:"size:254"`
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	IsSuperuser  bool      `json:"is_superuser" gorm:"not null;default:false"`
	DateJoined   time.Time `json:"date_joined" gorm:"autoCreateTime"`
	Groups       []Group   `json:"-" gorm:"many2many:user_groups;constraint:OnDelete:CASCADE"`
}

// OwnerID reports the user itself as the owner, so users may manage their own account.
func (u *User) OwnerID() int {
	return u.Id
}

// GroupNames lists the names of the loaded group memberships.
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Group is a named role. Names are unique and compared case-sensitively.
type Group struct {
	Id   int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"uniqueIndex;size:150;not null"`
}

// UserGroup is the membership join row between users and groups.
type UserGroup struct {
	UserId  int `gorm:"primaryKey"`
	GroupId int `gorm:"primaryKey"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}
