package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventInput struct {
	Name        string    `json:"name" binding:"required,max=100"`
	Description string    `json:"description"`
	Location    string    `json:"location" binding:"required,max=100"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required,gtefield=StartTime"`
	Status      string    `json:"status" binding:"required,max=25"`
	Quota       uint      `json:"quota"`
	Category    string    `json:"category" binding:"required,max=100"`
	OrganizerId int       `json:"organizer_id" binding:"required"`
}

type TicketInput struct {
	Name       string    `json:"name" binding:"required,max=100"`
	Price      uint      `json:"price"`
	SalesStart time.Time `json:"sales_start" binding:"required"`
	SalesEnd   time.Time `json:"sales_end" binding:"required,gtefield=SalesStart"`
	Quota      uint      `json:"quota"`
	EventId    uuid.UUID `json:"event_id" binding:"required"`
}

type RegistrationInput struct {
	TicketId uuid.UUID `json:"ticket_id" binding:"required"`
	UserId   int       `json:"user_id" binding:"required"`
}

type PaymentInput struct {
	PaymentMethod  string    `json:"payment_method" binding:"required,max=50"`
	PaymentStatus  string    `json:"payment_status" binding:"required,max=50"`
	AmountPaid     uint      `json:"amount_paid"`
	RegistrationId uuid.UUID `json:"registration_id" binding:"required"`
}

// UserInput is used for both creation and full replacement. Email format is
// checked after normalization, not at bind time.
type UserInput struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
	Password  string `json:"password" binding:"required"`
}

type GroupInput struct {
	Name string `json:"name" binding:"required,max=150"`
}

// AssignRoleInput uses pointers so an absent key is told apart from zero.
// Presence is checked by the service after the superuser check.
type AssignRoleInput struct {
	UserId  *int `json:"user_id"`
	GroupId *int `json:"group_id"`
}

type BulkDeleteInput struct {
	Ids []uuid.UUID `json:"ids" binding:"required,min=1"`
}

type TokenInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Status is the health report served to administrators.
type Status struct {
	Version  string    `json:"version"`
	Database string    `json:"database"`
	Cache    string    `json:"cache"`
	Uptime   uint64    `json:"uptime"`
	CPU      float64   `json:"cpu"`
	MemUsed  uint64    `json:"mem_used"`
	MemTotal uint64    `json:"mem_total"`
	Mail     MailStats `json:"mail"`
}

// MailStats counts in-process notification deliveries.
type MailStats struct {
	Enqueued int64 `json:"enqueued"`
	Failed   int64 `json:"failed"`
}
