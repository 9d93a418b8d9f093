package models

import "time"

// Request models
type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateProjectRequest is bound from JSON or from a multipart form that also
// carries the optional projectImage file. Divisions is either a JSON array
// string or a comma separated list.
type CreateProjectRequest struct {
	Name             string `json:"name" form:"name" binding:"required"`
	Location         string `json:"location" form:"location" binding:"required"`
	Cost             string `json:"cost" form:"cost" binding:"required"`
	StartDate        string `json:"startDate" form:"startDate" binding:"required"`
	Deadline         string `json:"deadline" form:"deadline" binding:"required"`
	LandArea         string `json:"landArea" form:"landArea" binding:"required"`
	ConstructionType string `json:"constructionType" form:"constructionType" binding:"required"`
	Divisions        string `json:"divisions" form:"divisions"`
	Email            string `json:"email" form:"email" binding:"required,email"`
}

// UpdateProjectRequest carries a partial update; empty fields are left unchanged
type UpdateProjectRequest struct {
	Name             string `json:"name" form:"name"`
	Location         string `json:"location" form:"location"`
	Cost             string `json:"cost" form:"cost"`
	StartDate        string `json:"startDate" form:"startDate"`
	Deadline         string `json:"deadline" form:"deadline"`
	LandArea         string `json:"landArea" form:"landArea"`
	ConstructionType string `json:"constructionType" form:"constructionType"`
	Divisions        string `json:"divisions" form:"divisions"`
	Email            string `json:"email" form:"email" binding:"omitempty,email"`
}

type UpdateStatusRequest struct {
	Status ProjectStatus `json:"status" binding:"required"`
}

type CreateLaborRequest struct {
	LaborType       string   `json:"laborType" binding:"required"`
	NumberOfWorkers int      `json:"numberOfWorkers" binding:"required,min=1"`
	Date            string   `json:"date" binding:"required"`
	Rate            *float64 `json:"rate" binding:"required,min=0"`
	Description     string   `json:"description" binding:"required"`
}

// UpdateLaborRequest carries a partial update of a labor record
type UpdateLaborRequest struct {
	LaborType       string   `json:"laborType"`
	NumberOfWorkers *int     `json:"numberOfWorkers" binding:"omitempty,min=1"`
	Date            string   `json:"date"`
	Rate            *float64 `json:"rate" binding:"omitempty,min=0"`
	Description     string   `json:"description"`
}

// UsageRequest creates a usage entry, or replaces one when UsageID is set
type UsageRequest struct {
	MaterialName string   `json:"materialName" binding:"required"`
	Division     string   `json:"division" binding:"required"`
	Quantity     *float64 `json:"quantity" binding:"required,min=0"`
	Unit         string   `json:"unit" binding:"required"`
	Description  string   `json:"description" binding:"required"`
	Date         string   `json:"date" binding:"required"`
	UsageID      string   `json:"usageId"`
}

// PurchaseRequest creates a purchase entry, or replaces one when PurchaseID is
// set. TotalCost defaults to UnitPrice * Quantity when omitted.
type PurchaseRequest struct {
	MaterialName  string   `json:"materialName" binding:"required"`
	Date          string   `json:"date" binding:"required"`
	Quantity      *float64 `json:"quantity" binding:"required,min=0"`
	Supplier      string   `json:"supplier" binding:"required"`
	UnitPrice     *float64 `json:"unitPrice" binding:"required,min=0"`
	TotalCost     *float64 `json:"totalCost" binding:"omitempty,min=0"`
	DeliveryNote  string   `json:"deliveryNote" binding:"required"`
	InvoiceNumber string   `json:"invoiceNumber" binding:"required"`
	PurchaseID    string   `json:"purchaseId"`
}

// ProgressRequest is bound from the multipart form carrying media files
type ProgressRequest struct {
	Division    string `form:"division" json:"division"`
	Progress    *int   `form:"progress" json:"progress"`
	Description string `form:"description" json:"description"`
}

type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type LeadRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNo     string `json:"phoneNo"`
	ProjectType string `json:"projectType"`
	Message     string `json:"message"`
}

// Response models
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
}

type AuthResponse struct {
	Message string   `json:"message,omitempty"`
	Token   string   `json:"token"`
	User    UserView `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ClientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ProjectResponse struct {
	Message string   `json:"message"`
	Project *Project `json:"project"`
}

type ProjectListItem struct {
	Project
	Client *ClientSummary `json:"client"`
}

type ProjectDetail struct {
	Project
	User ClientSummary `json:"user"`
}

type ProjectDetailResponse struct {
	Project ProjectDetail `json:"project"`
}

type MetricsResponse struct {
	OngoingProjects   int64 `json:"ongoingProjects"`
	CompletedProjects int64 `json:"completedProjects"`
	TotalProjects     int64 `json:"totalProjects"`
}

type ClientProject struct {
	Project
	UnviewedCount int `json:"unviewedCount"`
}

type ClientProjectsResponse struct {
	Projects      []ClientProject `json:"projects"`
	TotalUnviewed int             `json:"totalUnviewed"`
}

// LedgerTotals mirrors the derived cost fields of a project
type LedgerTotals struct {
	TotalLaborCost    float64 `json:"totalLaborCost"`
	TotalMaterialCost float64 `json:"totalMaterialCost"`
	GrandProjectCost  float64 `json:"grandProjectCost"`
}

// TotalsOf extracts the derived cost fields of p
func TotalsOf(p *Project) LedgerTotals {
	return LedgerTotals{
		TotalLaborCost:    p.TotalLaborCost,
		TotalMaterialCost: p.TotalMaterialCost,
		GrandProjectCost:  p.GrandProjectCost,
	}
}

type LaborListResponse struct {
	LaborRecords []LaborRecord `json:"laborRecords"`
	LedgerTotals
}

type LaborResponse struct {
	Message string       `json:"message"`
	Labor   *LaborRecord `json:"labor,omitempty"`
	Totals  LedgerTotals `json:"totals"`
}

type MaterialListResponse struct {
	Materials []Material `json:"materials"`
	LedgerTotals
}

type MaterialResponse struct {
	Material *Material   `json:"material"`
	Totals   LedgerTotals `json:"totals"`
}

type ProgressListResponse struct {
	ProgressUpdates []Progress `json:"progressUpdates"`
	UnviewedCount   int        `json:"unviewedCount"`
}

type ProgressResponse struct {
	Message  string    `json:"message,omitempty"`
	Progress *Progress `json:"progress"`
}

type ProjectUnviewed struct {
	ProjectID     string `json:"projectId"`
	UnviewedCount int    `json:"unviewedCount"`
}

// UnviewedSummary is the badge state of one client across all projects
type UnviewedSummary struct {
	TotalUnviewed int               `json:"totalUnviewed"`
	Projects      []ProjectUnviewed `json:"projects"`
	GeneratedAt   time.Time         `json:"generatedAt"`
}

type LeadResponse struct {
	Message string `json:"message"`
	Lead    *Lead  `json:"lead"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
