package models

import (
	"time"
)

// Role is the access role carried by a user and by issued tokens
type Role string

const (
	RoleClient Role = "Client"
	RoleAdmin  Role = "Admin"
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	StatusOngoing  ProjectStatus = "ongoing"
	StatusFinished ProjectStatus = "finished"
)

// Valid reports whether s is one of the known statuses
func (s ProjectStatus) Valid() bool {
	return s == StatusOngoing || s == StatusFinished
}

// MediaType classifies an uploaded progress attachment
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// User represents a registered account
type User struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Email      string    `json:"email" bson:"email"`
	Password   string    `json:"-" bson:"password"` // Password hash, not returned in JSON
	Phone      string    `json:"phone" bson:"phone"`
	Role       Role      `json:"role" bson:"role"`
	ProjectIDs []string  `json:"projectIds" bson:"project_ids"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`
}

// Project is a construction project owned by a client
type Project struct {
	ID                string        `json:"id" bson:"_id"`
	Name              string        `json:"name" bson:"name"`
	Location          string        `json:"location" bson:"location"`
	Cost              string        `json:"cost" bson:"cost"` // estimate as entered by the contractor
	StartDate         time.Time     `json:"startDate" bson:"start_date"`
	Deadline          time.Time     `json:"deadline" bson:"deadline"`
	LandArea          string        `json:"landArea" bson:"land_area"`
	ConstructionType  string        `json:"constructionType" bson:"construction_type"`
	Divisions         []string      `json:"divisions" bson:"divisions"`
	ClientID          string        `json:"clientId" bson:"client_id"`
	ImageURL          string        `json:"imageUrl" bson:"image_url"`
	Status            ProjectStatus `json:"status" bson:"status"`
	ProgressUpdateIDs []string      `json:"progressUpdateIds" bson:"progress_update_ids"`
	MaterialIDs       []string      `json:"materialIds" bson:"material_ids"`
	LaborIDs          []string      `json:"laborIds" bson:"labor_ids"`
	TotalLaborCost    float64       `json:"totalLaborCost" bson:"total_labor_cost"`
	TotalMaterialCost float64       `json:"totalMaterialCost" bson:"total_material_cost"`
	GrandProjectCost  float64       `json:"grandProjectCost" bson:"grand_project_cost"`
	CreatedAt         time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time     `json:"updatedAt" bson:"updated_at"`
}

// LaborRecord is one day of labor booked against a project
type LaborRecord struct {
	ID              string    `db:"id" json:"id" bson:"_id"`
	ProjectID       string    `db:"project_id" json:"projectId" bson:"project_id"`
	LaborType       string    `db:"labor_type" json:"laborType" bson:"labor_type"`
	NumberOfWorkers int       `db:"number_of_workers" json:"numberOfWorkers" bson:"number_of_workers"`
	Date            time.Time `db:"date" json:"date" bson:"date"`
	Rate            float64   `db:"rate" json:"rate" bson:"rate"`
	Description     string    `db:"description" json:"description" bson:"description"`
	TotalWage       float64   `db:"total_wage" json:"totalWage" bson:"total_wage"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}

// MaterialUsage records material consumed by a division
type MaterialUsage struct {
	ID          string    `json:"id" bson:"id"`
	Division    string    `json:"division" bson:"division"`
	Quantity    float64   `json:"quantity" bson:"quantity"`
	Unit        string    `json:"unit" bson:"unit"`
	Description string    `json:"description" bson:"description"`
	Date        time.Time `json:"date" bson:"date"`
}

// MaterialPurchase records a delivery of material and what it cost
type MaterialPurchase struct {
	ID            string    `json:"id" bson:"id"`
	Date          time.Time `json:"date" bson:"date"`
	Quantity      float64   `json:"quantity" bson:"quantity"`
	Supplier      string    `json:"supplier" bson:"supplier"`
	UnitPrice     float64   `json:"unitPrice" bson:"unit_price"`
	TotalCost     float64   `json:"totalCost" bson:"total_cost"`
	DeliveryNote  string    `json:"deliveryNote" bson:"delivery_note"`
	InvoiceNumber string    `json:"invoiceNumber" bson:"invoice_number"`
}

// Material groups usage and purchases of one named material within a project
type Material struct {
	ID           string             `json:"id" bson:"_id"`
	ProjectID    string             `json:"projectId" bson:"project_id"`
	Name         string             `json:"name" bson:"name"`
	UsageInfo    []MaterialUsage    `json:"usageInfo" bson:"usage_info"`
	PurchaseInfo []MaterialPurchase `json:"purchaseInfo" bson:"purchase_info"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// PurchaseTotal sums the cost of every purchase of the material
func (m *Material) PurchaseTotal() float64 {
	var total float64
	for _, p := range m.PurchaseInfo {
		total += p.TotalCost
	}
	return total
}

// Media is an uploaded attachment of a progress entry
type Media struct {
	URL  string    `json:"url" bson:"url"`
	Type MediaType `json:"type" bson:"type"`
}

// MessageSender carries the display role of a message author
type MessageSender struct {
	Role Role `json:"role" bson:"role"`
}

// Message is one entry of a progress discussion thread
type Message struct {
	SenderID  string        `json:"senderId" bson:"sender_id"`
	Sender    MessageSender `json:"sender" bson:"sender"`
	Text      string        `json:"text" bson:"text"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
}

// Progress is a percent-complete update for one division of a project
type Progress struct {
	ID          string    `json:"id" bson:"_id"`
	ProjectID   string    `json:"projectId" bson:"project_id"`
	Division    string    `json:"division" bson:"division"`
	Progress    int       `json:"progress" bson:"progress"`
	Media       []Media   `json:"media" bson:"media"`
	Description string    `json:"description" bson:"description"`
	DateUpdated time.Time `json:"dateUpdated" bson:"date_updated"`
	Messages    []Message `json:"messages" bson:"messages"`
	Viewed      bool      `json:"viewed" bson:"viewed"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Lead is a public contact-form submission awaiting admin verification
type Lead struct {
	ID          string    `db:"id" json:"id" bson:"_id"`
	Name        string    `db:"name" json:"name" bson:"name"`
	Email       string    `db:"email" json:"email" bson:"email"`
	PhoneNo     string    `db:"phone_no" json:"phoneNo" bson:"phone_no"`
	ProjectType string    `db:"project_type" json:"projectType" bson:"project_type"`
	Message     string    `db:"message" json:"message" bson:"message"`
	Verified    bool      `db:"verified" json:"verified" bson:"verified"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" bson:"created_at"`
}
