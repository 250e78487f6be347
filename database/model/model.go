// Package model holds the gorm models of the ticketing domain. Every
// reference to an owner cascades on delete: User -> Event -> Ticket ->
// Registration -> Payment, and Event -> EventPoster.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	Id          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null;index"`
	Description string    `json:"description"`
	Location    string    `json:"location" gorm:"size:100"`
	StartTime   time.Time `json:"start_time" gorm:"index"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status" gorm:"size:25"`
	Quota       uint      `json:"quota" gorm:"not null;default:0"`
	Category    string    `json:"category" gorm:"size:100"`
	OrganizerId int       `json:"organizer_id" gorm:"not null;index"`
	Organizer   User      `json:"-" gorm:"foreignKey:OrganizerId;constraint:OnDelete:CASCADE"`
}

// OwnerID reports the organizer as the owner of the event.
func (e *Event) OwnerID() int {
	return e.OrganizerId
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.Id == uuid.Nil {
		e.Id = uuid.New()
	}
	return nil
}

// EventPoster references an image blob kept in object storage.
type EventPoster struct {
	Id          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventId     uuid.UUID `json:"event" gorm:"type:uuid;not null;index"`
	Event       Event     `json:"-" gorm:"foreignKey:EventId;constraint:OnDelete:CASCADE"`
	ImageKey    string    `json:"image" gorm:"size:255;not null"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (p *EventPoster) BeforeCreate(tx *gorm.DB) error {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	return nil
}

type Ticket struct {
	Id         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string    `json:"name" gorm:"size:100;not null;index"`
	Price      uint      `json:"price" gorm:"not null;default:0"`
	SalesStart time.Time `json:"sales_start"`
	SalesEnd   time.Time `json:"sales_end"`
	Quota      uint      `json:"quota" gorm:"not null;default:0"`
	EventId    uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Event      Event     `json:"-" gorm:"foreignKey:EventId;constraint:OnDelete:CASCADE"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.Id == uuid.Nil {
		t.Id = uuid.New()
	}
	return nil
}

type Registration struct {
	Id       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TicketId uuid.UUID `json:"ticket_id" gorm:"type:uuid;not null;index"`
	Ticket   Ticket    `json:"-" gorm:"foreignKey:TicketId;constraint:OnDelete:CASCADE"`
	UserId   int       `json:"user_id" gorm:"not null;index"`
	User     User      `json:"-" gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

// OwnerID reports the registrant as the owner of the registration.
func (r *Registration) OwnerID() int {
	return r.UserId
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.Id == uuid.Nil {
		r.Id = uuid.New()
	}
	return nil
}

type Payment struct {
	Id             uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentMethod  string       `json:"payment_method" gorm:"size:50;not null"`
	PaymentStatus  string       `json:"payment_status" gorm:"size:50;not null"`
	AmountPaid     uint         `json:"amount_paid" gorm:"not null;default:0"`
	RegistrationId uuid.UUID    `json:"registration_id" gorm:"type:uuid;not null;index"`
	Registration   Registration `json:"-" gorm:"foreignKey:RegistrationId;constraint:OnDelete:CASCADE"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	return nil
}
