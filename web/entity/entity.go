// Package entity defines the request and response bodies of the REST API.
package entity

import (
	"fmt"
	"time"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/google/uuid"
)

// APIPrefix is the path every resource is mounted under.
const APIPrefix = "/api"

// Msg represents a standard API response message with success status, message text, and optional data object.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj,omitempty"`
}

// Detail is the body of not-found, permission and authentication failures.
type Detail struct {
	Detail string `json:"detail"`
}

// FieldErrors maps a request field to its validation messages.
type FieldErrors map[string][]string

// Link is a hypermedia control describing one allowed action on a resource.
type Link struct {
	Rel    string   `json:"rel"`
	Href   string   `json:"href"`
	Action string   `json:"action"`
	Types  []string `json:"types"`
}

// CollectionHref renders the absolute or root-relative URL of a collection.
func CollectionHref(collection string) string {
	return fmt.Sprintf("%s%s/%s", config.GetPublicURL(), APIPrefix, collection)
}

func DetailHref(collection string, id any) string {
	return fmt.Sprintf("%s/%v", CollectionHref(collection), id)
}

// Links returns the create, read, update and delete controls of one instance.
func Links(collection string, id any) []Link {
	types := []string{"application/json"}
	list := CollectionHref(collection)
	detail := DetailHref(collection, id)
	return []Link{
		{Rel: "self", Href: list, Action: "POST", Types: types},
		{Rel: "self", Href: detail, Action: "GET", Types: types},
		{Rel: "self", Href: detail, Action: "PUT", Types: types},
		{Rel: "self", Href: detail, Action: "DELETE", Types: types},
	}
}

type EventView struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	Quota       uint      `json:"quota"`
	Category    string    `json:"category"`
	OrganizerId int       `json:"organizer_id"`
	Links       []Link    `json:"_links"`
}

func (v *EventView) OwnerID() int { return v.OrganizerId }

func NewEventView(e *model.Event) *EventView {
	return &EventView{
		Id:          e.Id,
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Status:      e.Status,
		Quota:       e.Quota,
		Category:    e.Category,
		OrganizerId: e.OrganizerId,
		Links:       Links("events", e.Id),
	}
}

// TicketView shows the owning event by name.
type TicketView struct {
	Id         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Price      uint      `json:"price"`
	SalesStart time.Time `json:"sales_start"`
	SalesEnd   time.Time `json:"sales_end"`
	Quota      uint      `json:"quota"`
	Event      string    `json:"event"`
	Links      []Link    `json:"_links"`
}

func NewTicketView(t *model.Ticket) *TicketView {
	return &TicketView{
		Id:         t.Id,
		Name:       t.Name,
		Price:      t.Price,
		SalesStart: t.SalesStart,
		SalesEnd:   t.SalesEnd,
		Quota:      t.Quota,
		Event:      t.Event.Name,
		Links:      Links("tickets", t.Id),
	}
}

// RegistrationView shows the ticket by name and the registrant by username.
type RegistrationView struct {
	Id       uuid.UUID `json:"id"`
	Ticket   string    `json:"ticket"`
	User     string    `json:"user"`
	UserId   int       `json:"user_id"`
	TicketId uuid.UUID `json:"ticket_id"`
	Links    []Link    `json:"_links"`
}

func (v *RegistrationView) OwnerID() int { return v.UserId }

func NewRegistrationView(r *model.Registration) *RegistrationView {
	return &RegistrationView{
		Id:       r.Id,
		Ticket:   r.Ticket.Name,
		User:     r.User.Username,
		UserId:   r.UserId,
		TicketId: r.TicketId,
		Links:    Links("registrations", r.Id),
	}
}

type PaymentView struct {
	Id            uuid.UUID `json:"id"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	AmountPaid    uint      `json:"amount_paid"`
	Registration  string    `json:"registration"`
	Links         []Link    `json:"_links"`
}

func NewPaymentView(p *model.Payment) *PaymentView {
	return &PaymentView{
		Id:            p.Id,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
		AmountPaid:    p.AmountPaid,
		Registration:  p.RegistrationId.String(),
		Links:         Links("payments", p.Id),
	}
}

// UserView never carries the password hash.
type UserView struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Links     []Link `json:"_links"`
}

func (v *UserView) OwnerID() int { return v.Id }

func NewUserView(u *model.User) *UserView {
	return &UserView{
		Id:        u.Id,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Links:     Links("users", u.Id),
	}
}

type GroupView struct {
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Links []Link `json:"_links"`
}

func NewGroupView(g *model.Group) *GroupView {
	return &GroupView{Id: g.Id, Name: g.Name, Links: Links("groups", g.Id)}
}

// PosterView is returned after an upload.
type PosterView struct {
	Id    uuid.UUID `json:"id"`
	Event uuid.UUID `json:"event"`
	Image string    `json:"image"`
}

// PosterURL is one entry of a poster listing.
type PosterURL struct {
	Id  uuid.UUID `json:"id"`
	Url string    `json:"url"`
}

// Collection envelopes.
type (
	EventList struct {
		Events []*EventView `json:"events"`
	}
	TicketList struct {
		Tickets []*TicketView `json:"tickets"`
	}
	RegistrationList struct {
		Registrations []*RegistrationView `json:"registrations"`
	}
	PaymentList struct {
		Payments []*PaymentView `json:"payments"`
	}
	UserList struct {
		Users []*UserView `json:"users"`
	}
	GroupList struct {
		Groups []*GroupView `json:"groups"`
	}
)
