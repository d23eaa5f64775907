package models

import (
	"time"

	"gorm.io/gorm"
)

type ParcelStatus string

const (
	StatusRequested      ParcelStatus = "Requested"
	StatusApproved       ParcelStatus = "Approved"
	StatusDispatched     ParcelStatus = "Dispatched"
	StatusInTransit      ParcelStatus = "In Transit"
	StatusOutForDelivery ParcelStatus = "Out for Delivery"
	StatusDelivered      ParcelStatus = "Delivered"
	StatusCancelled      ParcelStatus = "Cancelled"
	StatusReturned       ParcelStatus = "Returned"
)

func (s ParcelStatus) String() string {
	return string(s)
}

func (s ParcelStatus) IsValid() bool {
	switch s {
	case StatusRequested, StatusApproved, StatusDispatched, StatusInTransit,
		StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition can leave this status.
func (s ParcelStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// IsPastDispatch reports whether the parcel has left the warehouse. A sender
// can no longer cancel once this is true.
func (s ParcelStatus) IsPastDispatch() bool {
	switch s {
	case StatusDispatched, StatusInTransit, StatusOutForDelivery, StatusDelivered:
		return true
	default:
		return false
	}
}

// forwardFlow is the normal delivery progression used when strict status
// flow is enabled.
var forwardFlow = map[ParcelStatus]ParcelStatus{
	StatusRequested:      StatusApproved,
	StatusApproved:       StatusDispatched,
	StatusDispatched:     StatusInTransit,
	StatusInTransit:      StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// CanTransitionTo reports whether target is a legal next status under the
// strict flow. Returned is reachable from any non-terminal status.
func (s ParcelStatus) CanTransitionTo(target ParcelStatus) bool {
	if target == StatusReturned {
		return !s.IsTerminal()
	}
	return forwardFlow[s] == target
}

type ParcelType string

const (
	TypeDocument    ParcelType = "Document"
	TypePackage     ParcelType = "Package"
	TypeFragile     ParcelType = "Fragile"
	TypeElectronics ParcelType = "Electronics"
	TypeFood        ParcelType = "Food"
	TypeOther       ParcelType = "Other"
)

func (t ParcelType) IsValid() bool {
	switch t {
	case TypeDocument, TypePackage, TypeFragile, TypeElectronics, TypeFood, TypeOther:
		return true
	default:
		return false
	}
}

// StatusLog is one entry in a parcel's audit trail. Entries are only ever
// inserted, never updated or deleted.
type StatusLog struct {
	ID          uint         `gorm:"primaryKey" json:"-"`
	ParcelID    uint         `gorm:"not null;index" json:"-"`
	Status      ParcelStatus `gorm:"column:status;not null" json:"status"`
	Timestamp   time.Time    `gorm:"column:timestamp;not null" json:"timestamp"`
	UpdatedByID uint         `gorm:"column:updated_by_id;not null" json:"updatedById"`
	UpdatedBy   *User        `gorm:"foreignKey:UpdatedByID" json:"updatedBy,omitempty"`
	Location    string       `gorm:"column:location" json:"location,omitempty"`
	Note        string       `gorm:"column:note" json:"note,omitempty"`
}

func (StatusLog) TableName() string {
	return "status_logs"
}

type Parcel struct {
	gorm.Model
	TrackingID string `gorm:"column:tracking_id;unique;not null" json:"trackingId"`
	SenderID   uint   `gorm:"column:sender_id;not null;index" json:"senderId"`
	ReceiverID uint   `gorm:"column:receiver_id;not null;index" json:"receiverId"`
	Sender     *User  `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver   *User  `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`

	// Sender contact details are copied from the sender's profile when the
	// parcel is created; later profile edits do not touch them. Receiver
	// details are whatever the sender typed in, independent of the receiver
	// account's own profile.
	SenderName      string `gorm:"column:sender_name;not null" json:"senderName"`
	SenderPhone     string `gorm:"column:sender_phone;not null" json:"senderPhone"`
	SenderAddress   string `gorm:"column:sender_address;not null" json:"senderAddress"`
	ReceiverName    string `gorm:"column:receiver_name;not null" json:"receiverName"`
	ReceiverPhone   string `gorm:"column:receiver_phone;not null" json:"receiverPhone"`
	ReceiverAddress string `gorm:"column:receiver_address;not null" json:"receiverAddress"`

	ParcelType  ParcelType `gorm:"column:parcel_type;not null" json:"parcelType"`
	Weight      float64    `gorm:"column:weight;not null" json:"weight"`
	Description string     `gorm:"column:description" json:"description,omitempty"`

	CurrentStatus ParcelStatus `gorm:"column:current_status;not null;default:'Requested'" json:"currentStatus"`
	Fee           float64      `gorm:"column:fee;not null" json:"fee"`

	EstimatedDeliveryDate *time.Time `gorm:"column:estimated_delivery_date" json:"estimatedDeliveryDate,omitempty"`
	ActualDeliveryDate    *time.Time `gorm:"column:actual_delivery_date" json:"actualDeliveryDate,omitempty"`

	ParcelImage string `gorm:"column:parcel_image" json:"parcelImage,omitempty"`
	IsBlocked   bool   `gorm:"column:is_blocked;not null;default:false" json:"isBlocked"`
	IsCancelled bool   `gorm:"column:is_cancelled;not null;default:false" json:"isCancelled"`

	StatusLogs []StatusLog `gorm:"foreignKey:ParcelID" json:"statusLogs"`
}

func (Parcel) TableName() string {
	return "parcels"
}
